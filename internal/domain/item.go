package domain

import (
	"cmp"
	"slices"
	"time"
)

// ProcessingStatus tracks post-save enrichment of an item.
type ProcessingStatus string

// Processing states. Capture saves items as complete; enrichment is a no-op hook.
const (
	ProcessingPending  ProcessingStatus = "pending"
	ProcessingComplete ProcessingStatus = "complete"
	ProcessingFailed   ProcessingStatus = "failed"
)

// SavedItem is a captured link owned by one user.
// URL is always canonical and absolute; Domain is its lowercase host.
type SavedItem struct {
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	URL              string           `json:"url"`
	Domain           string           `json:"domain,omitempty"`
	Title            string           `json:"title,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	SourceApp        string           `json:"source_app,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	IsFavorite       bool             `json:"is_favorite"`
	IsArchived       bool             `json:"is_archived"`
	Tags             []*Tag           `json:"tags"` // populated on read; not stored on the item row
}

// TagIDs returns the IDs of the item's tags in their current order.
func (i *SavedItem) TagIDs() []string {
	ids := make([]string, len(i.Tags))
	for n, t := range i.Tags {
		ids[n] = t.ID
	}
	return ids
}

// ItemPatch is a partial update of an item row. Nil fields are left unchanged.
// Setting an optional text field to "" clears it.
type ItemPatch struct {
	URL        *string `json:"url,omitempty"`
	Domain     *string `json:"domain,omitempty"`
	Title      *string `json:"title,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	SourceApp  *string `json:"source_app,omitempty"`
	IsFavorite *bool   `json:"is_favorite,omitempty"`
	IsArchived *bool   `json:"is_archived,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.URL == nil && p.Domain == nil && p.Title == nil && p.Notes == nil &&
		p.SourceApp == nil && p.IsFavorite == nil && p.IsArchived == nil
}

// Apply writes the patch onto item and bumps UpdatedAt.
func (p ItemPatch) Apply(item *SavedItem, now time.Time) {
	if p.URL != nil {
		item.URL = *p.URL
	}
	if p.Domain != nil {
		item.Domain = *p.Domain
	}
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
	if p.SourceApp != nil {
		item.SourceApp = *p.SourceApp
	}
	if p.IsFavorite != nil {
		item.IsFavorite = *p.IsFavorite
	}
	if p.IsArchived != nil {
		item.IsArchived = *p.IsArchived
	}
	item.UpdatedAt = now
}

// CompareRecency orders items newest first, breaking created_at ties by ID descending.
func CompareRecency(a, b *SavedItem) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// SortByRecency sorts items newest first in place.
func SortByRecency(items []*SavedItem) {
	slices.SortStableFunc(items, CompareRecency)
}
