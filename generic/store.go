/*
store.go - Persistence interface for whole-state documents

PURPOSE:
  The household state is persisted as one serialized document per owner
  (a user or device identity). The store is deliberately dumb: it keeps
  bytes plus the two fields the sync layer compares, and knows nothing
  about charges or budgets.

CONFLICT POLICY:
  Last write wins, compared by the document's modifiedAt timestamp. The
  comparison lives in household/sync.go; stores only persist.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - household/document.go: encodes/decodes Payload
  - household/sync.go: Syncer on top of DocumentStore
*/
package generic

import (
	"context"
	"time"
)

// Record is one stored document.
type Record struct {
	OwnerID    string
	Version    int
	ModifiedAt string // ISO-8601, compared lexicographically
	Payload    []byte
	UpdatedAt  time.Time // when the store last wrote the row
}

// DocumentStore persists one document per owner.
type DocumentStore interface {
	// Get returns ErrRecordNotFound when the owner has no document.
	Get(ctx context.Context, ownerID string) (*Record, error)

	// Put inserts or replaces the owner's document.
	Put(ctx context.Context, rec Record) error

	Delete(ctx context.Context, ownerID string) error

	// List returns all owners' records without payloads, ordered by owner.
	List(ctx context.Context) ([]Record, error)
}
