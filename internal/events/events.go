// Package events carries store change notifications to in-process subscribers.
package events

import (
	"time"

	"github.com/linkstash/linkstash/internal/domain"
)

// EventType represents the type of a change event.
type EventType string

const (
	// EventItemCreated is emitted after a saved item is inserted.
	EventItemCreated EventType = "item.created"
	// EventItemUpdated is emitted after a saved item is patched.
	EventItemUpdated EventType = "item.updated"
	// EventItemDeleted is emitted after a saved item is removed.
	EventItemDeleted EventType = "item.deleted"

	// EventTagCreated is emitted after a tag is inserted.
	EventTagCreated EventType = "tag.created"
	// EventTagDeleted is emitted after a tag and its links are removed.
	EventTagDeleted EventType = "tag.deleted"

	// EventItemTagsReplaced is emitted after an item's link set is swapped.
	EventItemTagsReplaced EventType = "item_tags.replaced"
)

// Table names the record set a change touched.
type Table string

// Tables of the item store.
const (
	TableSavedItems   Table = "saved_items"
	TableTags         Table = "tags"
	TableItemTagLinks Table = "item_tag_links"
)

// Kind is the row-level operation behind a change.
type Kind string

// Change kinds.
const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Event is a single change notification.
// UserID scopes delivery: subscribers only see their owner's events.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	Table     Table     `json:"table"`
	Kind      Kind      `json:"kind"`
	UserID    string    `json:"-"`
	RecordID  string    `json:"record_id"`
}

// ItemEventData is the payload for item insert/update events.
type ItemEventData struct {
	Item *domain.SavedItem `json:"item"`
}

// ItemDeletedEventData is the payload for item delete events.
type ItemDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	ItemID    string    `json:"item_id"`
}

// TagEventData is the payload for tag insert events.
type TagEventData struct {
	Tag *domain.Tag `json:"tag"`
}

// TagDeletedEventData is the payload for tag delete events.
type TagDeletedEventData struct {
	TagID string `json:"tag_id"`
}

// ItemTagsEventData is the payload for link replacement events.
type ItemTagsEventData struct {
	ItemID string   `json:"item_id"`
	TagIDs []string `json:"tag_ids"`
}

// NewItemCreatedEvent creates an item.created event.
func NewItemCreatedEvent(item *domain.SavedItem) Event {
	return Event{
		Type:      EventItemCreated,
		Table:     TableSavedItems,
		Kind:      KindInsert,
		UserID:    item.UserID,
		RecordID:  item.ID,
		Data:      ItemEventData{Item: item},
		Timestamp: time.Now(),
	}
}

// NewItemUpdatedEvent creates an item.updated event.
func NewItemUpdatedEvent(item *domain.SavedItem) Event {
	return Event{
		Type:      EventItemUpdated,
		Table:     TableSavedItems,
		Kind:      KindUpdate,
		UserID:    item.UserID,
		RecordID:  item.ID,
		Data:      ItemEventData{Item: item},
		Timestamp: time.Now(),
	}
}

// NewItemDeletedEvent creates an item.deleted event.
func NewItemDeletedEvent(userID, itemID string) Event {
	now := time.Now()
	return Event{
		Type:      EventItemDeleted,
		Table:     TableSavedItems,
		Kind:      KindDelete,
		UserID:    userID,
		RecordID:  itemID,
		Data:      ItemDeletedEventData{ItemID: itemID, DeletedAt: now},
		Timestamp: now,
	}
}

// NewTagCreatedEvent creates a tag.created event.
func NewTagCreatedEvent(tag *domain.Tag) Event {
	return Event{
		Type:      EventTagCreated,
		Table:     TableTags,
		Kind:      KindInsert,
		UserID:    tag.UserID,
		RecordID:  tag.ID,
		Data:      TagEventData{Tag: tag},
		Timestamp: time.Now(),
	}
}

// NewTagDeletedEvent creates a tag.deleted event.
func NewTagDeletedEvent(userID, tagID string) Event {
	return Event{
		Type:      EventTagDeleted,
		Table:     TableTags,
		Kind:      KindDelete,
		UserID:    userID,
		RecordID:  tagID,
		Data:      TagDeletedEventData{TagID: tagID},
		Timestamp: time.Now(),
	}
}

// NewItemTagsReplacedEvent creates an item_tags.replaced event.
func NewItemTagsReplacedEvent(userID, itemID string, tagIDs []string) Event {
	return Event{
		Type:      EventItemTagsReplaced,
		Table:     TableItemTagLinks,
		Kind:      KindUpdate,
		UserID:    userID,
		RecordID:  itemID,
		Data:      ItemTagsEventData{ItemID: itemID, TagIDs: tagIDs},
		Timestamp: time.Now(),
	}
}
