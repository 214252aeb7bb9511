package deviceauth

import (
	"context"
	"errors"
	"strings"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/utils"
)

// SetSecurityAnswers stores hashed answers keyed by question. Answers are
// normalized first so width and case do not matter at reset time.
func (a *Authenticator) SetSecurityAnswers(ctx context.Context, answers map[string]string) error {
	if len(answers) == 0 {
		return errors.New("deviceauth: at least one security answer is required")
	}
	hashed := make(map[string]string, len(answers))
	for q, ans := range answers {
		q = strings.TrimSpace(q)
		norm := utils.NormalizeAnswer(ans)
		if q == "" || norm == "" {
			return errors.New("deviceauth: empty security question or answer")
		}
		h, err := utils.HashPIN(norm)
		if err != nil {
			return err
		}
		hashed[q] = h
	}
	return localstore.SetJSON(ctx, a.local, localstore.KeySecurityAnswers, hashed)
}

// ResetPIN replaces a forgotten PIN. Every stored question must be answered
// correctly. A successful reset also lifts any lockout.
func (a *Authenticator) ResetPIN(ctx context.Context, answers map[string]string, newPIN string) error {
	if !pinPattern.MatchString(newPIN) {
		return ErrWeakPIN
	}
	var stored map[string]string
	ok, err := localstore.GetJSON(ctx, a.local, localstore.KeySecurityAnswers, &stored)
	if err != nil {
		return err
	}
	if !ok || len(stored) == 0 {
		return ErrNoAnswers
	}
	for q, h := range stored {
		given, present := answers[q]
		if !present {
			return ErrInvalidAnswers
		}
		valid, err := utils.VerifyPIN(utils.NormalizeAnswer(given), h)
		if err != nil {
			return err
		}
		if !valid {
			return ErrInvalidAnswers
		}
	}
	if err := a.SetPIN(ctx, newPIN); err != nil {
		return err
	}
	if err := a.clearFailures(ctx); err != nil {
		return err
	}
	return a.Logout(ctx)
}
