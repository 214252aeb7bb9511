package models

import (
	"time"
)

// ConsentRecord stores a user's acceptance of the privacy/consent terms.
type ConsentRecord struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UserName  string    `db:"user_name" json:"user_name"`
	Version   string    `db:"version" json:"version"`
	Accepted  bool      `db:"accepted" json:"accepted"`
	IPAddress string    `db:"ip_address" json:"ip_address,omitempty"`
}
