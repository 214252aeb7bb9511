package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

const (
	// AdminSessionDuration bounds both the JWT and its Redis session key
	AdminSessionDuration = 12 * time.Hour
	// AdminSessionKeyPrefix is the Redis key prefix for admin sessions
	AdminSessionKeyPrefix = "admin_session:"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AdminClaims is the payload of an admin access token.
type AdminClaims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AdminSessions issues HS256 tokens for staff. With a Redis client, every
// token's id is also kept as a session key so sign-out can revoke it.
type AdminSessions struct {
	secret []byte
	ttl    time.Duration
	client *redis.Client
	now    func() time.Time
}

func NewAdminSessions(secret string, client *redis.Client) *AdminSessions {
	return &AdminSessions{
		secret: []byte(secret),
		ttl:    AdminSessionDuration,
		client: client,
		now:    time.Now,
	}
}

// Create signs a token for the admin and records its session.
func (s *AdminSessions) Create(ctx context.Context, admin *models.Admin) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := AdminClaims{
		Role:     admin.Role,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	if s.client != nil {
		if err := s.client.Set(ctx, AdminSessionKeyPrefix+claims.ID, admin.ID, s.ttl).Err(); err != nil {
			return "", time.Time{}, fmt.Errorf("store admin session: %w", err)
		}
	}
	return signed, exp, nil
}

// Validate parses the token and checks that its session was not revoked.
func (s *AdminSessions) Validate(ctx context.Context, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if s.client != nil {
		n, err := s.client.Exists(ctx, AdminSessionKeyPrefix+claims.ID).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// Invalidate revokes the session behind the token id.
func (s *AdminSessions) Invalidate(ctx context.Context, tokenID string) error {
	if s.client == nil || tokenID == "" {
		return nil
	}
	return s.client.Del(ctx, AdminSessionKeyPrefix+tokenID).Err()
}
