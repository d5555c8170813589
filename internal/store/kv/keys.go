package kv

import (
	"fmt"
	"time"
)

// Key layout. Record ids are globally unique, so records are keyed by id and
// carry their owner; index keys that list an owner's records lead with it.
const (
	itemPrefix       = "item:"              // item:{id} → SavedItem JSON (no tags)
	itemCreatedIndex = "idx:items:created:" // idx:items:created:{user}:{nanos}:{id} → empty
	itemTagsIndex    = "idx:items:tags:"    // idx:items:tags:{itemID}:{tagID} → empty
	tagPrefix        = "tag:"               // tag:{id} → Tag JSON (no count)
	tagKeyIndex      = "idx:tags:key:"      // idx:tags:key:{user}:{nameKey} → tagID
	tagItemsIndex    = "idx:tags:items:"    // idx:tags:items:{tagID}:{itemID} → empty
)

func itemKey(itemID string) []byte { return []byte(itemPrefix + itemID) }

func tagKey(tagID string) []byte { return []byte(tagPrefix + tagID) }

// createdPrefix scopes the recency index to one owner.
func createdPrefix(ownerID string) []byte {
	return []byte(itemCreatedIndex + ownerID + ":")
}

// createdKey orders by creation time, then id; nanos are zero-padded so keys
// compare lexically in time order.
func createdKey(ownerID string, createdAt time.Time, itemID string) []byte {
	nanos := max(createdAt.UnixNano(), 0)
	return fmt.Appendf(nil, "%s%s:%019d:%s", itemCreatedIndex, ownerID, nanos, itemID)
}

func tagNameKey(ownerID, nameKey string) []byte {
	return []byte(tagKeyIndex + ownerID + ":" + nameKey)
}

func itemTagsPrefix(itemID string) []byte { return []byte(itemTagsIndex + itemID + ":") }

func tagItemsPrefix(tagID string) []byte { return []byte(tagItemsIndex + tagID + ":") }

func itemTagKey(itemID, tagID string) []byte {
	return []byte(itemTagsIndex + itemID + ":" + tagID)
}

func tagItemKey(tagID, itemID string) []byte {
	return []byte(tagItemsIndex + tagID + ":" + itemID)
}
