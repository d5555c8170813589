// Package store defines the item store contract shared by the SQLite and Badger backends.
//
// Every call is scoped by an owner id; no call reads or writes across owners.
package store

import (
	"context"

	"github.com/linkstash/linkstash/internal/domain"
)

// EventEmitter is the interface for emitting change events.
// Stores use it to announce writes without depending on the fan-out implementation.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// ItemQuery selects a page of an owner's items.
// Results are ordered created_at DESC, id DESC.
type ItemQuery struct {
	OwnerID string
	// Search is matched case-insensitively as a substring of title, notes or url.
	Search string
	// ItemIDs restricts results to these ids when non-nil. A non-nil empty
	// slice matches nothing.
	ItemIDs []string
	Primary domain.PrimaryFilter
	Offset  int
	Limit   int // <= 0 means no limit
}

// ItemStore persists saved items.
type ItemStore interface {
	// CreateItem inserts item. Returns ErrAlreadyExists on id collision.
	CreateItem(ctx context.Context, item *domain.SavedItem) error
	// GetItem returns the item with its tags, or ErrNotFound.
	GetItem(ctx context.Context, ownerID, itemID string) (*domain.SavedItem, error)
	// UpdateItem applies patch and returns the updated item, or ErrNotFound.
	UpdateItem(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (*domain.SavedItem, error)
	// DeleteItem removes the item and its links, or returns ErrNotFound.
	DeleteItem(ctx context.Context, ownerID, itemID string) error
	// ListItems returns matching items with tags populated.
	ListItems(ctx context.Context, q ItemQuery) ([]*domain.SavedItem, error)
}

// TagStore persists tags and item-tag links.
type TagStore interface {
	// CreateTag inserts tag. Returns ErrAlreadyExists when the owner already
	// has a tag with the same NameKey.
	CreateTag(ctx context.Context, tag *domain.Tag) error
	// GetTag returns the tag or ErrNotFound.
	GetTag(ctx context.Context, ownerID, tagID string) (*domain.Tag, error)
	// FindTagsByKeys returns the owner's tags whose NameKey is in keys.
	FindTagsByKeys(ctx context.Context, ownerID string, keys []string) ([]*domain.Tag, error)
	// ListTags returns the owner's tags ordered by name with ItemCount filled.
	ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error)
	// DeleteTag removes the tag and every link to it, or returns ErrNotFound.
	DeleteTag(ctx context.Context, ownerID, tagID string) error
	// ReplaceItemTags swaps the item's whole link set for tagIDs in one transaction.
	// Returns ErrNotFound for an unknown item and ErrInvalidInput for a tag the
	// owner does not have.
	ReplaceItemTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error
	// GetItemIDsForTag returns the ids of the owner's items linked to tagID.
	GetItemIDsForTag(ctx context.Context, ownerID, tagID string) ([]string, error)
}

// Store is the full item store.
type Store interface {
	ItemStore
	TagStore

	// SetEmitter replaces the change event emitter. Call before use.
	SetEmitter(emitter EventEmitter)
	Close() error
}
