package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/middleware"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/store"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/utils"
)

type AdminSigninRequest struct {
	Login    string `json:"login"` // username or email
	Password string `json:"password"`
}

// AdminSignin checks staff credentials and issues an access token.
func (h *Handler) AdminSignin(w http.ResponseWriter, r *http.Request) {
	var req AdminSigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Login and password are required")
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	admin, err := h.Admins.GetByLogin(ctx, req.Login)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("admin signin: lookup failed: %v", err)
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !admin.IsActive {
		writeError(w, http.StatusForbidden, "Account is disabled")
		return
	}
	ok, err := utils.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, expiresAt, err := h.Sessions.Create(ctx, admin)
	if err != nil {
		log.Printf("admin signin: session create failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Signed in",
		"token":      token,
		"expires_at": expiresAt,
		"admin": map[string]interface{}{
			"id":           admin.ID,
			"username":     admin.Username,
			"display_name": admin.DisplayName,
			"role":         admin.Role,
		},
	})
}

// AdminSignout revokes the current token.
func (h *Handler) AdminSignout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()
	if err := h.Sessions.Invalidate(ctx, claims.ID); err != nil {
		log.Printf("admin signout: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Signed out"})
}

// AdminMe returns the authenticated staff identity.
func (h *Handler) AdminMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"id":       claims.Subject,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

func actorName(r *http.Request) string {
	if c, ok := middleware.AdminFromContext(r.Context()); ok {
		return c.Username
	}
	return ""
}
