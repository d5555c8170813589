package domain

import "time"

// Tag is a user-owned label for saved items.
// Name keeps the casing the user first typed; NameKey is the comparison form
// (see util.TagKey) and is unique per owner.
type Tag struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	NameKey   string    `json:"name_key"`
	ItemCount int       `json:"item_count"` // filled by tag listings only
}

// ItemTagLink joins an item to a tag. The pair is its identity.
type ItemTagLink struct {
	CreatedAt time.Time `json:"created_at"`
	ItemID    string    `json:"item_id"`
	TagID     string    `json:"tag_id"`
	UserID    string    `json:"user_id"`
}
