package models

import (
	"time"
)

// User is the backing-store record of a diary author. Name is the display
// name clients use as the join key.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
