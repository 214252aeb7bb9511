// Package localstore is the durable key-value storage the sync agent keeps
// on the device. Values are strings; callers store JSON.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/config"
)

// Keys shared by the reconciliation service and device auth.
const (
	KeyEntries         = "journalEntries"
	KeyLastSyncTime    = "lastSyncTime"
	KeyLastSyncError   = "lastSyncError"
	KeyAutoSync        = "autoSyncEnabled"
	KeyUserName        = "line-username"
	KeyAuthSession     = "auth_session"
	KeyFingerprint     = "device_fingerprint"
	KeyLoginAttempts   = "login_attempts"
	KeyAccountLock     = "account_lock"
	KeyPINHash         = "pin_hash"
	KeySecurityAnswers = "security_answers"
)

type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the value at key into v. It reports false when the key
// is absent and leaves v untouched.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("localstore: decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}

// Open builds the store named by cfg.LocalStore.
func Open(cfg config.Agent, redisURI string) (Store, error) {
	switch strings.ToLower(cfg.LocalStore) {
	case "", "sqlite":
		return OpenSQLite(cfg.LocalPath)
	case "redis":
		return OpenRedis(redisURI, cfg.UserName)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("localstore: unknown backend %q", cfg.LocalStore)
	}
}
