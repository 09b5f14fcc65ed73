/*
sync.go - Last-write-wins persistence of the whole document

PURPOSE:
  Each household (owner) has exactly one stored document. Devices push and
  pull the whole thing; conflicts are settled by comparing modifiedAt
  strings. ModifiedAtLayout sorts lexicographically, so string comparison
  is time comparison.

DECISIONS:
  local >  remote  -> PushLocal   (store local)
  local <  remote  -> PullRemote  (keep stored, hand it back)
  local == remote  -> InSync      (no write)

  A stored document that cannot be decoded never blocks a save: it is
  logged and replaced.
*/
package household

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/logging"
)

type SyncDecision int

const (
	InSync SyncDecision = iota
	PushLocal
	PullRemote
)

func (d SyncDecision) String() string {
	switch d {
	case InSync:
		return "in_sync"
	case PushLocal:
		return "push_local"
	case PullRemote:
		return "pull_remote"
	default:
		return fmt.Sprintf("SyncDecision(%d)", int(d))
	}
}

func (d SyncDecision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// CompareModified decides which side of a sync wins.
func CompareModified(local, remote string) SyncDecision {
	switch {
	case local == remote:
		return InSync
	case local > remote:
		return PushLocal
	default:
		return PullRemote
	}
}

// Syncer loads and saves documents through a DocumentStore.
type Syncer struct {
	Store generic.DocumentStore
	Log   *logging.Logger
}

func NewSyncer(store generic.DocumentStore, log *logging.Logger) *Syncer {
	if log == nil {
		log = logging.Discard()
	}
	return &Syncer{Store: store, Log: log.WithComponent(logging.ComponentSync)}
}

// Load returns the owner's normalized document. It returns
// generic.ErrRecordNotFound when nothing is stored and
// generic.ErrNoUsableRecord when the stored bytes are unusable.
func (s *Syncer) Load(ctx context.Context, owner string) (*State, error) {
	rec, err := s.Store.Get(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", owner, err)
	}
	st, err := DecodeDocument(rec.Payload)
	if err != nil {
		s.Log.WarnContext(ctx, "stored document unusable",
			logging.FieldOwner, owner, logging.FieldError, err)
		return nil, fmt.Errorf("load %s: %w", owner, err)
	}
	return st, nil
}

// LoadOrNew is Load with an empty document for unknown owners. An unusable
// stored document is still reported as ErrNoUsableRecord.
func (s *Syncer) LoadOrNew(ctx context.Context, owner string) (*State, error) {
	st, err := s.Load(ctx, owner)
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, generic.ErrRecordNotFound):
		return NewState(), nil
	default:
		return nil, err
	}
}

// Save writes st unless the stored document is newer. It returns the
// winning document and the decision taken.
func (s *Syncer) Save(ctx context.Context, owner string, st *State) (*State, SyncDecision, error) {
	if st == nil {
		return nil, InSync, generic.Invalid("state", "required")
	}
	local := Normalize(st)

	remote, err := s.Load(ctx, owner)
	switch {
	case err == nil:
		decision := CompareModified(local.ModifiedAt, remote.ModifiedAt)
		if decision != PushLocal {
			s.Log.DebugContext(ctx, "save skipped",
				logging.FieldOwner, owner, logging.FieldDecision, decision.String())
			return remote, decision, nil
		}
	case errors.Is(err, generic.ErrRecordNotFound), errors.Is(err, generic.ErrNoUsableRecord):
	default:
		return nil, InSync, err
	}

	if err := s.put(ctx, owner, local); err != nil {
		return nil, InSync, err
	}
	s.Log.InfoContext(ctx, "document saved",
		logging.FieldOwner, owner, "modified_at", local.ModifiedAt)
	return local, PushLocal, nil
}

// Replace writes st unconditionally, for server-side edits that already
// started from the stored document.
func (s *Syncer) Replace(ctx context.Context, owner string, st *State) error {
	return s.put(ctx, owner, Normalize(st))
}

func (s *Syncer) put(ctx context.Context, owner string, st *State) error {
	payload, err := EncodeDocument(st)
	if err != nil {
		return err
	}
	rec := generic.Record{
		OwnerID:    owner,
		Version:    CurrentVersion,
		ModifiedAt: st.ModifiedAt,
		Payload:    payload,
	}
	if err := s.Store.Put(ctx, rec); err != nil {
		return fmt.Errorf("save %s: %w", owner, err)
	}
	return nil
}
