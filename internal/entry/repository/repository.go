package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daybook/daybook/internal/entry"
)

// Repository persists entries. Every method takes the owner id as a mandatory
// predicate; an entry owned by someone else is indistinguishable from a missing
// one.
type Repository interface {
	// Create assigns an id and timestamps when they are unset and stores e.
	Create(ctx context.Context, e *entry.Entry) error
	// Get returns entry.ErrNotFound when (ownerID, id) matches nothing.
	Get(ctx context.Context, ownerID, id string) (*entry.Entry, error)
	// LatestBetween returns the newest entry created in [from, to), ties broken
	// by lowest id, or entry.ErrNotFound.
	LatestBetween(ctx context.Context, ownerID string, from, to time.Time) (*entry.Entry, error)
	// List orders by createdAt descending.
	List(ctx context.Context, ownerID string, limit, offset int) ([]*entry.Entry, error)
	// Search matches text case-insensitively against content or title,
	// createdAt descending, at most limit rows.
	Search(ctx context.Context, ownerID, text string, limit int) ([]*entry.Entry, error)
	// Since returns entries created at or after from, createdAt ascending.
	Since(ctx context.Context, ownerID string, from time.Time) ([]*entry.Entry, error)
	// Update replaces the mutable fields. It is a no-op when nothing matches.
	Update(ctx context.Context, ownerID, id string, c entry.Changes, now time.Time) error
	// Delete is a no-op when nothing matches.
	Delete(ctx context.Context, ownerID, id string) error
}

func prepare(e *entry.Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	if e.Template == "" {
		e.Template = entry.TemplateFree
	}
}

func blank(text string) bool {
	return strings.TrimSpace(text) == ""
}
