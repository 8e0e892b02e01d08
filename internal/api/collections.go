package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/btafoya/pbxadmin/internal/db"
	"github.com/btafoya/pbxadmin/internal/models"
)

// CollectionHandler serves the standard endpoints of one ordered collection:
// list, CRUD and reorder. The reorder endpoint renumbers priorities by
// position and answers with the full authoritative list under the
// collection's plural key.
type CollectionHandler[T models.Ordered] struct {
	repo    *db.ResourceRepository[T]
	kind    string // singular, for messages ("route", "extension")
	listKey string // plural JSON key ("routes", "extensions")
	newFn   func() T
}

// NewCollectionHandler creates a handler for one collection
func NewCollectionHandler[T models.Ordered](repo *db.ResourceRepository[T], kind, listKey string, newFn func() T) *CollectionHandler[T] {
	return &CollectionHandler[T]{repo: repo, kind: kind, listKey: listKey, newFn: newFn}
}

// Mount registers the collection's endpoints on a router
func (h *CollectionHandler[T]) Mount(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/reorder", h.Reorder)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List returns the collection in evaluation order
func (h *CollectionHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		WriteInternalError(w)
		return
	}
	if items == nil {
		items = []T{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		h.listKey: items,
		"total":   len(items),
	})
}

// Create inserts a new resource. A missing id is filled with a fresh uuid.
func (h *CollectionHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	item := h.newFn()
	if err := json.NewDecoder(r.Body).Decode(item); err != nil {
		WriteFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if item.ResourceID() == "" {
		item.SetResourceID(uuid.NewString())
	}

	if problems := item.Validate(); len(problems) > 0 {
		WriteFailure(w, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}

	if err := h.repo.Create(r.Context(), item); err != nil {
		if errors.Is(err, db.ErrResourceExists) {
			WriteFailure(w, http.StatusConflict, title(h.kind)+" with this id already exists")
			return
		}
		WriteInternalError(w)
		return
	}

	WriteSuccess(w, http.StatusCreated, title(h.kind)+" created successfully", item.ResourceID())
}

// Get returns a single resource by id
func (h *CollectionHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, db.ErrResourceNotFound) {
			WriteFailure(w, http.StatusNotFound, title(h.kind)+" not found")
			return
		}
		WriteInternalError(w)
		return
	}

	WriteJSON(w, http.StatusOK, item)
}

// Update replaces a resource. The id in the URL wins over any id in the body.
func (h *CollectionHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	item := h.newFn()
	if err := json.NewDecoder(r.Body).Decode(item); err != nil {
		WriteFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	item.SetResourceID(chi.URLParam(r, "id"))

	if problems := item.Validate(); len(problems) > 0 {
		WriteFailure(w, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}

	if err := h.repo.Update(r.Context(), item); err != nil {
		if errors.Is(err, db.ErrResourceNotFound) {
			WriteFailure(w, http.StatusNotFound, title(h.kind)+" not found")
			return
		}
		WriteInternalError(w)
		return
	}

	WriteSuccess(w, http.StatusOK, title(h.kind)+" updated successfully", "")
}

// Delete removes a resource
func (h *CollectionHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, db.ErrResourceNotFound) {
			WriteFailure(w, http.StatusNotFound, title(h.kind)+" not found")
			return
		}
		WriteInternalError(w)
		return
	}

	WriteSuccess(w, http.StatusOK, title(h.kind)+" deleted successfully", "")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ReorderRequest moves the resource at from_index to to_index
type ReorderRequest struct {
	FromIndex int `json:"from_index"`
	ToIndex   int `json:"to_index"`
}

// Reorder moves one resource and renumbers all priorities by position. The
// response carries the full list in its new authoritative order.
func (h *CollectionHandler[T]) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	items, err := h.repo.Reorder(r.Context(), req.FromIndex, req.ToIndex)
	if err != nil {
		if errors.Is(err, db.ErrIndexOutOfRange) {
			WriteFailure(w, http.StatusBadRequest, "Invalid index")
			return
		}
		WriteInternalError(w)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": title(h.listKey) + " reordered successfully",
		h.listKey: items,
	})
}
