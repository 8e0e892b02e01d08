package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/btafoya/pbxadmin/internal/collection"
	"github.com/btafoya/pbxadmin/internal/models"
)

// view is the kind-erased surface the command loop drives; each ordered
// collection gets one
type view interface {
	Name() string
	Refresh(ctx context.Context) error
	Render(w io.Writer) error
	Move(ctx context.Context, id string, index int) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Remove(ctx context.Context, id string) error
	Len() int
}

// collectionView binds a synchronizer to its table rendering
type collectionView[T models.Ordered] struct {
	name   string
	syncer *collection.Syncer[T]
	newFn  func() T
	header []string
	row    func(T) []string
}

func newCollectionView[T models.Ordered](name string, authority collection.Authority[T], newFn func() T, header []string, row func(T) []string) *collectionView[T] {
	return &collectionView[T]{
		name:   name,
		syncer: collection.NewSyncer(authority),
		newFn:  newFn,
		header: header,
		row:    row,
	}
}

func (v *collectionView[T]) Name() string { return v.name }

func (v *collectionView[T]) Refresh(ctx context.Context) error {
	return v.syncer.Refresh(ctx)
}

func (v *collectionView[T]) Len() int {
	return v.syncer.Snapshot().Len()
}

// Render writes the collection as an aligned table in display order
func (v *collectionView[T]) Render(w io.Writer) error {
	items := v.syncer.Snapshot().Items()
	if len(items) == 0 {
		fmt.Fprintf(w, "no %s\n", v.name)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tPRI\tON\t"+strings.Join(v.header, "\t"))
	for i, item := range items {
		cols := []string{
			strconv.Itoa(i),
			shortID(item.ResourceID()),
			strconv.Itoa(item.ResourcePriority()),
			onOff(item.ResourceEnabled()),
		}
		cols = append(cols, v.row(item)...)
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func (v *collectionView[T]) Move(ctx context.Context, id string, index int) error {
	full, err := v.resolveID(id)
	if err != nil {
		return err
	}
	return v.syncer.Move(ctx, full, index)
}

func (v *collectionView[T]) SetEnabled(ctx context.Context, id string, enabled bool) error {
	full, err := v.resolveID(id)
	if err != nil {
		return err
	}

	item, ok := v.syncer.Snapshot().Get(full)
	if !ok {
		return collection.ErrNotInCollection
	}

	// Work on a copy so failed commits roll back to untouched snapshots
	updated, err := cloneItem(item, v.newFn)
	if err != nil {
		return err
	}
	updated.SetEnabled(enabled)
	return v.syncer.Update(ctx, updated)
}

func (v *collectionView[T]) Remove(ctx context.Context, id string) error {
	full, err := v.resolveID(id)
	if err != nil {
		return err
	}
	return v.syncer.Delete(ctx, full)
}

// Add creates a resource from a JSON document. A fresh id is assigned and
// the resource is appended at the end of the ordering.
func (v *collectionView[T]) Add(ctx context.Context, doc []byte) (string, error) {
	item := v.newFn()
	if err := json.Unmarshal(doc, item); err != nil {
		return "", fmt.Errorf("parse %s document: %w", v.name, err)
	}

	item.SetResourceID(uuid.NewString())
	item.SetPriority(v.syncer.Snapshot().Len())

	if problems := item.Validate(); len(problems) > 0 {
		return "", fmt.Errorf("invalid %s: %s", v.name, strings.Join(problems, "; "))
	}

	if err := v.syncer.Create(ctx, item); err != nil {
		return "", err
	}
	return item.ResourceID(), nil
}

// resolveID accepts a full id or an unambiguous prefix
func (v *collectionView[T]) resolveID(id string) (string, error) {
	var match string
	for _, item := range v.syncer.Snapshot().Items() {
		full := item.ResourceID()
		if full == id {
			return full, nil
		}
		if strings.HasPrefix(full, id) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", id)
			}
			match = full
		}
	}
	if match == "" {
		return "", fmt.Errorf("no %s with id %q", v.name, id)
	}
	return match, nil
}

func cloneItem[T any](item T, newFn func() T) (T, error) {
	var zero T
	data, err := json.Marshal(item)
	if err != nil {
		return zero, fmt.Errorf("clone: %w", err)
	}
	out := newFn()
	if err := json.Unmarshal(data, out); err != nil {
		return zero, fmt.Errorf("clone: %w", err)
	}
	return out, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
