package deviceauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newAuth(t *testing.T) (*Authenticator, *clock, localstore.Store) {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	local := localstore.NewMemory()
	a := New(local, Options{Now: c.Now})
	require.NoError(t, a.SetPIN(context.Background(), "2468"))
	return a, c, local
}

func TestSetPINRejectsWeakPIN(t *testing.T) {
	a := New(localstore.NewMemory(), Options{})
	ctx := context.Background()
	for _, pin := range []string{"", "123", "123456789", "12a4"} {
		assert.ErrorIs(t, a.SetPIN(ctx, pin), ErrWeakPIN, pin)
	}
	ok, err := a.HasPIN(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.Login(ctx, "1234")
	assert.ErrorIs(t, err, ErrNoPIN)
}

func TestLoginAndSession(t *testing.T) {
	ctx := context.Background()
	a, c, _ := newAuth(t)

	s, err := a.Login(ctx, "2468")
	require.NoError(t, err)
	assert.Equal(t, c.now.Add(24*time.Hour), s.ExpiresAt)

	fp, err := a.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, fp, s.Fingerprint)

	got, err := a.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Token, got.Token)

	c.now = c.now.Add(24 * time.Hour)
	_, err = a.Session(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionBoundToDevice(t *testing.T) {
	ctx := context.Background()
	a, _, local := newAuth(t)

	_, err := a.Login(ctx, "2468")
	require.NoError(t, err)
	require.NoError(t, local.Set(ctx, localstore.KeyFingerprint, "another-device"))

	_, err = a.Session(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLockoutAfterFiveFailures(t *testing.T) {
	ctx := context.Background()
	a, c, _ := newAuth(t)

	for i := 0; i < 4; i++ {
		_, err := a.Login(ctx, "0000")
		assert.ErrorIs(t, err, ErrInvalidPIN)
	}
	left, err := a.RemainingAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	_, err = a.Login(ctx, "0000")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, c.now.Add(30*time.Minute), locked.Until)

	// correct PIN is refused while locked
	_, err = a.Login(ctx, "2468")
	require.ErrorAs(t, err, &locked)

	c.now = c.now.Add(30 * time.Minute)
	_, err = a.Login(ctx, "2468")
	require.NoError(t, err)
	left, err = a.RemainingAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, left)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAuth(t)

	for i := 0; i < 3; i++ {
		_, _ = a.Login(ctx, "1111")
	}
	_, err := a.Login(ctx, "2468")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = a.Login(ctx, "1111")
		assert.ErrorIs(t, err, ErrInvalidPIN)
	}
}

func TestResetPINWithSecurityAnswers(t *testing.T) {
	ctx := context.Background()
	a, _, local := newAuth(t)

	assert.ErrorIs(t, a.ResetPIN(ctx, map[string]string{"pet": "ねこ"}, "9999"), ErrNoAnswers)

	require.NoError(t, a.SetSecurityAnswers(ctx, map[string]string{
		"pet":  "ねこ",
		"city": "Tokyo",
	}))
	raw, ok, err := local.Get(ctx, localstore.KeySecurityAnswers)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "Tokyo")

	err = a.ResetPIN(ctx, map[string]string{"pet": "ねこ"}, "9999")
	assert.ErrorIs(t, err, ErrInvalidAnswers)
	err = a.ResetPIN(ctx, map[string]string{"pet": "いぬ", "city": "tokyo"}, "9999")
	assert.ErrorIs(t, err, ErrInvalidAnswers)

	require.NoError(t, a.ResetPIN(ctx, map[string]string{"pet": " ね こ", "city": "ＴＯＫＹＯ"}, "9999"))
	_, err = a.Login(ctx, "2468")
	assert.ErrorIs(t, err, ErrInvalidPIN)
	_, err = a.Login(ctx, "9999")
	assert.NoError(t, err)
}
