package models

import (
	"time"
)

// BackupVersion is written into every backup document.
const BackupVersion = "1"

// Backup is the JSON document produced by the backup endpoint and accepted
// by restore. Its structure mirrors the entry collection.
type Backup struct {
	Version    string         `json:"version"`
	CreatedAt  time.Time      `json:"createdAt"`
	EntryCount int            `json:"entryCount"`
	Users      []User         `json:"users"`
	Entries    []JournalEntry `json:"entries"`
}
