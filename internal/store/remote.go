package store

import (
	"github.com/jmoiron/sqlx"
)

// Remote is the hosted store as the sync agent uses it: user resolution
// plus entry upserts and deletes over one pool.
type Remote struct {
	*UserStore
	*EntryStore
}

func NewRemote(db *sqlx.DB) *Remote {
	return &Remote{UserStore: NewUserStore(db), EntryStore: NewEntryStore(db)}
}
