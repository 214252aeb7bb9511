package database

import (
	"context"
	"log"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var PostgresDB *sqlx.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	db, err := OpenPostgres(context.Background(), postgresURI)
	if err != nil {
		return err
	}
	PostgresDB = db

	log.Println("✅ Connected to PostgreSQL")

	// Initialize tables
	if err = InitPostgresTables(PostgresDB); err != nil {
		return err
	}
	return nil
}

// OpenPostgres opens a pooled connection and pings it, retrying while the
// database is still starting up.
func OpenPostgres(ctx context.Context, postgresURI string) (*sqlx.DB, error) {
	db, err := NewPostgres(postgresURI)
	if err != nil {
		return nil, err
	}
	if err := PingPostgres(ctx, db, 5); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewPostgres configures a pool without connecting. Connections are made on
// first use.
func NewPostgres(postgresURI string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// PingPostgres pings up to attempts times with a growing delay.
func PingPostgres(ctx context.Context, db *sqlx.DB, attempts uint) error {
	return retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("PostgreSQL ping attempt %d failed: %v", n+1, err)
		}),
	)
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(db *sqlx.DB) error {
	queries := []string{
		// Diary authors, keyed externally by display name
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Diary entries. date is an ISO string so range filters compare lexicographically.
		`CREATE TABLE IF NOT EXISTS diary_entries (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date VARCHAR(10) NOT NULL,
			emotion VARCHAR(32) NOT NULL,
			event TEXT NOT NULL DEFAULT '',
			realization TEXT NOT NULL DEFAULT '',
			self_esteem_score INTEGER NOT NULL DEFAULT 50 CHECK (self_esteem_score BETWEEN 0 AND 100),
			worthlessness_score INTEGER NOT NULL DEFAULT 50 CHECK (worthlessness_score BETWEEN 0 AND 100),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			synced_at TIMESTAMPTZ,
			counselor_memo TEXT NOT NULL DEFAULT '',
			is_visible_to_user BOOLEAN NOT NULL DEFAULT FALSE,
			assigned_counselor VARCHAR(255) NOT NULL DEFAULT '',
			urgency_level VARCHAR(10) NOT NULL DEFAULT ''
		)`,

		// Staff accounts (admins and counselors)
		`CREATE TABLE IF NOT EXISTS admins (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'counselor',
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Consent records
		`CREATE TABLE IF NOT EXISTS consent_records (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			user_name VARCHAR(255) NOT NULL,
			version VARCHAR(50) NOT NULL,
			accepted BOOLEAN NOT NULL,
			ip_address VARCHAR(255) NOT NULL DEFAULT ''
		)`,

		// Create indexes for better performance
		`CREATE INDEX IF NOT EXISTS idx_users_name_lower ON users(LOWER(name))`,
		`CREATE INDEX IF NOT EXISTS idx_diary_entries_user_id ON diary_entries(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_diary_entries_date ON diary_entries(date)`,
		`CREATE INDEX IF NOT EXISTS idx_diary_entries_emotion ON diary_entries(emotion)`,
		`CREATE INDEX IF NOT EXISTS idx_diary_entries_urgency ON diary_entries(urgency_level)`,
		`CREATE INDEX IF NOT EXISTS idx_diary_entries_counselor ON diary_entries(assigned_counselor)`,
		`CREATE INDEX IF NOT EXISTS idx_admins_username ON admins(username)`,
		`CREATE INDEX IF NOT EXISTS idx_consent_records_user_name ON consent_records(user_name)`,
		`CREATE INDEX IF NOT EXISTS idx_consent_records_created_at ON consent_records(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
