package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btafoya/pbxadmin/internal/models"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrResourceExists   = errors.New("resource already exists")
	ErrIndexOutOfRange  = errors.New("index out of range")
)

// ResourceRepository handles database operations for one ordered collection.
// The id, priority and enabled fields live in real columns so listing and
// reordering stay in SQL; the full resource is stored as a JSON document in
// the data column. Listing orders by priority ascending with rowid breaking
// ties, so resources sharing a priority keep insertion order.
type ResourceRepository[T models.Ordered] struct {
	db    *sql.DB
	table string
	newFn func() T
}

// NewResourceRepository creates a repository for the given table. newFn
// allocates an empty resource for row scanning.
func NewResourceRepository[T models.Ordered](db *sql.DB, table string, newFn func() T) *ResourceRepository[T] {
	return &ResourceRepository[T]{db: db, table: table, newFn: newFn}
}

// Table returns the repository's table name
func (r *ResourceRepository[T]) Table() string {
	return r.table
}

// List returns the collection in evaluation order
func (r *ResourceRepository[T]) List(ctx context.Context) ([]T, error) {
	return r.list(ctx, fmt.Sprintf(
		`SELECT priority, enabled, data FROM %s ORDER BY priority ASC, rowid ASC`, r.table))
}

// ListEnabled returns only enabled resources, in evaluation order
func (r *ResourceRepository[T]) ListEnabled(ctx context.Context) ([]T, error) {
	return r.list(ctx, fmt.Sprintf(
		`SELECT priority, enabled, data FROM %s WHERE enabled = 1 ORDER BY priority ASC, rowid ASC`, r.table))
}

func (r *ResourceRepository[T]) list(ctx context.Context, query string) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetByID retrieves a resource by id
func (r *ResourceRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT priority, enabled, data FROM %s WHERE id = ?`, r.table), id)

	item, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrResourceNotFound
	}
	if err != nil {
		return zero, err
	}
	return item, nil
}

// Create inserts a new resource. The id must be unique within the table.
func (r *ResourceRepository[T]) Create(ctx context.Context, item T) error {
	var exists int
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE id = ?`, r.table), item.ResourceID()).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrResourceExists
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode resource: %w", err)
	}

	_, err = r.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, priority, enabled, data) VALUES (?, ?, ?, ?)`, r.table),
		item.ResourceID(), item.ResourcePriority(), item.ResourceEnabled(), string(data))
	return err
}

// Update replaces an existing resource
func (r *ResourceRepository[T]) Update(ctx context.Context, item T) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode resource: %w", err)
	}

	result, err := r.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET priority = ?, enabled = ?, data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, r.table),
		item.ResourcePriority(), item.ResourceEnabled(), string(data), item.ResourceID())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// Delete removes a resource by id
func (r *ResourceRepository[T]) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id = ?`, r.table), id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// Count returns the collection size
func (r *ResourceRepository[T]) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&count)
	return count, err
}

// Reorder moves the resource at fromIndex to toIndex and renumbers every
// priority to match its position, all inside one transaction. It returns
// the full collection in its new authoritative order.
func (r *ResourceRepository[T]) Reorder(ctx context.Context, fromIndex, toIndex int) ([]T, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	if fromIndex < 0 || fromIndex >= len(items) || toIndex < 0 || toIndex >= len(items) {
		return nil, ErrIndexOutOfRange
	}

	moved := items[fromIndex]
	items = append(items[:fromIndex], items[fromIndex+1:]...)

	reordered := make([]T, 0, len(items)+1)
	reordered = append(reordered, items[:toIndex]...)
	reordered = append(reordered, moved)
	reordered = append(reordered, items[toIndex:]...)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for i, item := range reordered {
		item.SetPriority(i)
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode resource: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %s SET priority = ?, data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, r.table),
			i, string(data), item.ResourceID()); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return reordered, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func (r *ResourceRepository[T]) scanRow(row scanner) (T, error) {
	var zero T
	var priority int
	var enabled bool
	var data string

	if err := row.Scan(&priority, &enabled, &data); err != nil {
		return zero, err
	}

	item := r.newFn()
	if err := json.Unmarshal([]byte(data), item); err != nil {
		return zero, fmt.Errorf("decode resource from %s: %w", r.table, err)
	}
	// The columns are authoritative; a reorder may have renumbered them
	// after the document was written.
	item.SetPriority(priority)
	item.SetEnabled(enabled)
	return item, nil
}
