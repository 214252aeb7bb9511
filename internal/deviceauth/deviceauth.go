// Package deviceauth guards the sync agent with a device PIN. All state
// lives in the injected local store.
package deviceauth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/utils"
)

var (
	ErrNoPIN          = errors.New("deviceauth: no PIN set")
	ErrWeakPIN        = errors.New("deviceauth: PIN must be 4 to 8 digits")
	ErrInvalidPIN     = errors.New("deviceauth: incorrect PIN")
	ErrNoSession      = errors.New("deviceauth: not logged in")
	ErrInvalidAnswers = errors.New("deviceauth: security answers do not match")
	ErrNoAnswers      = errors.New("deviceauth: no security answers set")
)

// LockedError is returned while the device is locked out.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("deviceauth: locked until %s", e.Until.Format(time.RFC3339))
}

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

type Options struct {
	MaxAttempts int
	Lockout     time.Duration
	SessionTTL  time.Duration
	Now         func() time.Time
}

// Session is the persisted login.
type Session struct {
	Token       string    `json:"token"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type attempts struct {
	Count int       `json:"count"`
	Last  time.Time `json:"last"`
}

type lock struct {
	Until time.Time `json:"until"`
}

type Authenticator struct {
	local localstore.Store
	opts  Options
}

func New(local localstore.Store, opts Options) *Authenticator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Lockout <= 0 {
		opts.Lockout = 30 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Authenticator{local: local, opts: opts}
}

func (a *Authenticator) HasPIN(ctx context.Context) (bool, error) {
	_, ok, err := a.local.Get(ctx, localstore.KeyPINHash)
	return ok, err
}

// SetPIN stores a new PIN hash. Existing sessions stay valid.
func (a *Authenticator) SetPIN(ctx context.Context, pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrWeakPIN
	}
	hashed, err := utils.HashPIN(pin)
	if err != nil {
		return err
	}
	return a.local.Set(ctx, localstore.KeyPINHash, hashed)
}

// Login checks pin and opens a session. After MaxAttempts consecutive
// failures the device is locked for the lockout period.
func (a *Authenticator) Login(ctx context.Context, pin string) (*Session, error) {
	now := a.opts.Now()
	if until, locked, err := a.lockedUntil(ctx, now); err != nil {
		return nil, err
	} else if locked {
		return nil, &LockedError{Until: until}
	}

	hashed, ok, err := a.local.Get(ctx, localstore.KeyPINHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoPIN
	}

	valid, err := utils.VerifyPIN(pin, hashed)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, a.recordFailure(ctx, now)
	}

	if err := a.clearFailures(ctx); err != nil {
		return nil, err
	}

	fp, err := a.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Token:       uuid.NewString(),
		Fingerprint: fp,
		CreatedAt:   now.UTC(),
		ExpiresAt:   now.Add(a.opts.SessionTTL).UTC(),
	}
	if err := localstore.SetJSON(ctx, a.local, localstore.KeyAuthSession, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Session returns the current session, dropping it when expired or when it
// was opened on another device.
func (a *Authenticator) Session(ctx context.Context) (*Session, error) {
	var s Session
	ok, err := localstore.GetJSON(ctx, a.local, localstore.KeyAuthSession, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}
	fp, err := a.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	if !a.opts.Now().Before(s.ExpiresAt) || s.Fingerprint != fp {
		if err := a.Logout(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return &s, nil
}

func (a *Authenticator) Logout(ctx context.Context) error {
	return a.local.Delete(ctx, localstore.KeyAuthSession)
}

// Fingerprint returns the device id, creating it on first use.
func (a *Authenticator) Fingerprint(ctx context.Context) (string, error) {
	fp, ok, err := a.local.Get(ctx, localstore.KeyFingerprint)
	if err != nil {
		return "", err
	}
	if ok && fp != "" {
		return fp, nil
	}
	fp = uuid.NewString()
	if err := a.local.Set(ctx, localstore.KeyFingerprint, fp); err != nil {
		return "", err
	}
	return fp, nil
}

// RemainingAttempts reports how many failures are left before lockout.
func (a *Authenticator) RemainingAttempts(ctx context.Context) (int, error) {
	var at attempts
	if _, err := localstore.GetJSON(ctx, a.local, localstore.KeyLoginAttempts, &at); err != nil {
		return 0, err
	}
	if left := a.opts.MaxAttempts - at.Count; left > 0 {
		return left, nil
	}
	return 0, nil
}

func (a *Authenticator) lockedUntil(ctx context.Context, now time.Time) (time.Time, bool, error) {
	var l lock
	ok, err := localstore.GetJSON(ctx, a.local, localstore.KeyAccountLock, &l)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if now.Before(l.Until) {
		return l.Until, true, nil
	}
	// expired lock
	return time.Time{}, false, a.local.Delete(ctx, localstore.KeyAccountLock)
}

func (a *Authenticator) recordFailure(ctx context.Context, now time.Time) error {
	var at attempts
	if _, err := localstore.GetJSON(ctx, a.local, localstore.KeyLoginAttempts, &at); err != nil {
		return err
	}
	at.Count++
	at.Last = now.UTC()

	if at.Count >= a.opts.MaxAttempts {
		l := lock{Until: now.Add(a.opts.Lockout).UTC()}
		if err := localstore.SetJSON(ctx, a.local, localstore.KeyAccountLock, l); err != nil {
			return err
		}
		if err := a.local.Delete(ctx, localstore.KeyLoginAttempts); err != nil {
			return err
		}
		return &LockedError{Until: l.Until}
	}
	if err := localstore.SetJSON(ctx, a.local, localstore.KeyLoginAttempts, at); err != nil {
		return err
	}
	return ErrInvalidPIN
}

func (a *Authenticator) clearFailures(ctx context.Context) error {
	if err := a.local.Delete(ctx, localstore.KeyLoginAttempts); err != nil {
		return err
	}
	return a.local.Delete(ctx, localstore.KeyAccountLock)
}
