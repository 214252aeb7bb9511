package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/clientip"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/utils"
)

// ConsentRequest is the body of POST /api/consent.
type ConsentRequest struct {
	UserName string `json:"user_name"`
	Version  string `json:"version"`
	Accepted bool   `json:"accepted"`
}

// RecordConsent stores a user's answer to the privacy terms. The client IP
// is stored encrypted when an encryption key is configured.
func (h *Handler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	var req ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserName = strings.TrimSpace(req.UserName)
	req.Version = strings.TrimSpace(req.Version)
	if err := utils.ValidateDisplayName(req.UserName); err != nil {
		var verr *utils.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Version == "" {
		writeError(w, http.StatusBadRequest, "Consent version is required")
		return
	}

	ip, err := h.Cipher.Encrypt(clientip.RealClientIP(r))
	if err != nil {
		log.Printf("consent: encrypt ip: %v", err)
		ip = ""
	}
	record := &models.ConsentRecord{
		UserName:  req.UserName,
		Version:   req.Version,
		Accepted:  req.Accepted,
		IPAddress: ip,
	}

	ctx, cancel := h.ctx(r)
	defer cancel()
	if err := h.Consents.Create(ctx, record); err != nil {
		log.Printf("consent: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to record consent")
		return
	}
	record.IPAddress = ""
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Consent recorded",
		"consent": record,
	})
}

// ListConsents returns consent records, optionally for one user_name.
func (h *Handler) ListConsents(w http.ResponseWriter, r *http.Request) {
	limit := uint64(100)
	if v, err := strconv.ParseUint(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	records, err := h.Consents.List(ctx, strings.TrimSpace(r.URL.Query().Get("user_name")), limit)
	if err != nil {
		log.Printf("list consents: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch consents")
		return
	}
	for i := range records {
		ip, err := h.Cipher.Decrypt(records[i].IPAddress)
		if err != nil {
			ip = ""
		}
		records[i].IPAddress = ip
	}
	if records == nil {
		records = []models.ConsentRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"consents": records,
		"count":    len(records),
	})
}
