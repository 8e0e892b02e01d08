package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors returned by the Syncer
var (
	// ErrPendingCommit is returned when a mutation is attempted while an
	// earlier one is still awaiting the server's verdict
	ErrPendingCommit = errors.New("a mutation is already awaiting commit")

	// ErrNotInCollection is returned when the target id is not present in
	// the local snapshot
	ErrNotInCollection = errors.New("resource not in collection")
)

// Authority is the remote owner of a collection's contents and order. The
// REST client implements it per resource kind.
type Authority[T Resource] interface {
	Fetch(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) error
	Update(ctx context.Context, item T) error
	Delete(ctx context.Context, id string) error

	// Reorder moves the item at fromIndex to toIndex and returns the full
	// authoritative ordered list
	Reorder(ctx context.Context, fromIndex, toIndex int) ([]T, error)
}

// Syncer keeps a local Store in step with its remote Authority. Mutations
// apply optimistically to the local snapshot, then commit against the
// server. Exactly one mutation per collection may be in flight: a second
// mutation started before the first resolves is rejected with
// ErrPendingCommit. On a failed commit the optimistic state is discarded and
// the authoritative list re-fetched; if the re-fetch fails too, the snapshot
// taken before the mutation is restored.
type Syncer[T Resource] struct {
	mu        sync.Mutex
	authority Authority[T]
	store     *Store[T]
	pending   bool
}

// NewSyncer creates a syncer with an empty local snapshot; call Refresh to
// populate it
func NewSyncer[T Resource](authority Authority[T]) *Syncer[T] {
	return &Syncer[T]{
		authority: authority,
		store:     NewStore[T](nil),
	}
}

// Snapshot returns the current local snapshot
func (s *Syncer[T]) Snapshot() *Store[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Refresh replaces the local snapshot with the server's list
func (s *Syncer[T]) Refresh(ctx context.Context) error {
	items, err := s.authority.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch collection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return ErrPendingCommit
	}
	s.store = NewStore(items)
	return nil
}

// Move reorders the item with the given id to newIndex. The move applies
// locally first; on success the server's returned list is adopted wholesale.
func (s *Syncer[T]) Move(ctx context.Context, id string, newIndex int) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrPendingCommit
	}
	before := s.store
	from := before.IndexOf(id)
	if from < 0 {
		s.mu.Unlock()
		return ErrNotInCollection
	}
	moved := before.MoveTo(id, newIndex)
	to := moved.IndexOf(id)
	s.store = moved
	s.pending = true
	s.mu.Unlock()

	if from == to {
		// Clamping made the move a no-op; nothing to commit.
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		return nil
	}

	fresh, err := s.authority.Reorder(ctx, from, to)
	if err != nil {
		return s.rollback(ctx, before, fmt.Errorf("reorder: %w", err))
	}

	s.mu.Lock()
	s.store = NewStore(fresh)
	s.pending = false
	s.mu.Unlock()
	return nil
}

// Create inserts item locally and commits it to the server. The caller
// assigns the id and priority before calling.
func (s *Syncer[T]) Create(ctx context.Context, item T) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrPendingCommit
	}
	before := s.store
	s.store = before.Insert(item)
	s.pending = true
	s.mu.Unlock()

	if err := s.authority.Create(ctx, item); err != nil {
		return s.rollback(ctx, before, fmt.Errorf("create: %w", err))
	}
	return s.settle()
}

// Update replaces the item with the same id locally and commits it
func (s *Syncer[T]) Update(ctx context.Context, item T) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrPendingCommit
	}
	before := s.store
	if before.IndexOf(item.ResourceID()) < 0 {
		s.mu.Unlock()
		return ErrNotInCollection
	}
	s.store = before.Replace(item)
	s.pending = true
	s.mu.Unlock()

	if err := s.authority.Update(ctx, item); err != nil {
		return s.rollback(ctx, before, fmt.Errorf("update: %w", err))
	}
	return s.settle()
}

// Delete removes the item with the given id locally and commits the removal
func (s *Syncer[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrPendingCommit
	}
	before := s.store
	if before.IndexOf(id) < 0 {
		s.mu.Unlock()
		return ErrNotInCollection
	}
	s.store = before.Remove(id)
	s.pending = true
	s.mu.Unlock()

	if err := s.authority.Delete(ctx, id); err != nil {
		return s.rollback(ctx, before, fmt.Errorf("delete: %w", err))
	}
	return s.settle()
}

// settle marks a successful commit
func (s *Syncer[T]) settle() error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	return nil
}

// rollback discards the optimistic state after a failed commit. The
// authoritative list is re-fetched; if that fails too, the pre-mutation
// snapshot is restored so the console never shows state the server refused.
func (s *Syncer[T]) rollback(ctx context.Context, before *Store[T], cause error) error {
	items, fetchErr := s.authority.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
	if fetchErr != nil {
		s.store = before
		return fmt.Errorf("%w (re-fetch after failure also failed: %v; local state restored)", cause, fetchErr)
	}
	s.store = NewStore(items)
	return cause
}
