// Package collection provides the console's ordered collection store and the
// synchronizer that keeps it consistent with the server.
package collection

// Resource is any item addressable by an opaque id
type Resource interface {
	ResourceID() string
}

// Store is an immutable ordered snapshot of a collection. Every mutation
// returns a new Store; existing snapshots are never modified, so a caller
// can hold one across a failed server round-trip and restore it.
type Store[T Resource] struct {
	items []T
}

// NewStore creates a snapshot holding a copy of items
func NewStore[T Resource](items []T) *Store[T] {
	copied := make([]T, len(items))
	copy(copied, items)
	return &Store[T]{items: copied}
}

// Len returns the number of items in the snapshot
func (s *Store[T]) Len() int {
	return len(s.items)
}

// Items returns a copy of the ordered item list
func (s *Store[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the item with the given id
func (s *Store[T]) Get(id string) (T, bool) {
	for _, item := range s.items {
		if item.ResourceID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// IndexOf returns the position of the item with the given id, or -1
func (s *Store[T]) IndexOf(id string) int {
	for i, item := range s.items {
		if item.ResourceID() == id {
			return i
		}
	}
	return -1
}

// Insert returns a snapshot with item appended
func (s *Store[T]) Insert(item T) *Store[T] {
	items := make([]T, 0, len(s.items)+1)
	items = append(items, s.items...)
	items = append(items, item)
	return &Store[T]{items: items}
}

// Replace returns a snapshot with the item of the same id swapped for item.
// An unknown id is a no-op.
func (s *Store[T]) Replace(item T) *Store[T] {
	idx := s.IndexOf(item.ResourceID())
	if idx < 0 {
		return s
	}
	items := make([]T, len(s.items))
	copy(items, s.items)
	items[idx] = item
	return &Store[T]{items: items}
}

// Remove returns a snapshot without the item of the given id. An unknown id
// is a no-op.
func (s *Store[T]) Remove(id string) *Store[T] {
	idx := s.IndexOf(id)
	if idx < 0 {
		return s
	}
	items := make([]T, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	items = append(items, s.items[idx+1:]...)
	return &Store[T]{items: items}
}

// MoveTo returns a snapshot with the item of the given id removed from its
// position and reinserted at newIndex. The target index is clamped into
// range, so moving past the end means "move to the end". An unknown id is a
// no-op. MoveTo manipulates positions only; it never touches priorities,
// since renumbering is the server's job.
func (s *Store[T]) MoveTo(id string, newIndex int) *Store[T] {
	from := s.IndexOf(id)
	if from < 0 {
		return s
	}
	to := clamp(newIndex, 0, len(s.items)-1)
	if to == from {
		return s
	}

	items := make([]T, 0, len(s.items))
	items = append(items, s.items[:from]...)
	items = append(items, s.items[from+1:]...)

	tail := make([]T, 0, len(s.items))
	tail = append(tail, items[:to]...)
	tail = append(tail, s.items[from])
	tail = append(tail, items[to:]...)
	return &Store[T]{items: tail}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
