package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity event types shown in the admin live feed.
const (
	ActivityEntryUpdated   = "entry.updated"
	ActivityEntryDeleted   = "entry.deleted"
	ActivityEntriesDeleted = "entries.bulk_deleted"
	ActivityEntriesSynced  = "entries.synced"
	ActivityBackupCreated  = "backup.created"
	ActivityBackupRestored = "backup.restored"
)

// Activity is one admin-visible event, stored in MongoDB (one document per
// event) and fanned out to connected admin panels.
type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type      string             `bson:"type" json:"type"`
	Actor     string             `bson:"actor,omitempty" json:"actor,omitempty"`
	EntryIDs  []string           `bson:"entry_ids,omitempty" json:"entry_ids,omitempty"`
	Message   string             `bson:"message,omitempty" json:"message,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// BackupArchive is the MongoDB record kept for every backup produced.
type BackupArchive struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	CreatedBy  string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	Kind       string             `bson:"kind" json:"kind"` // "manual", "scheduled", "pre-restore"
	EntryCount int                `bson:"entry_count" json:"entry_count"`
	URL        string             `bson:"url,omitempty" json:"url,omitempty"`
	Document   []byte             `bson:"document" json:"-"`
}
