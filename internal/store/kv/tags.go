package kv

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/store"
)

// CreateTag stores a new tag and claims its name key for the owner.
// Returns store.ErrAlreadyExists when the owner already has the name key.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		// Check if the name key is already taken by this owner.
		nameKey := tagNameKey(t.UserID, t.NameKey)
		if _, err := txn.Get(nameKey); err == nil {
			return store.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		key := tagKey(t.ID)
		if _, err := txn.Get(key); err == nil {
			return store.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		rec := *t
		rec.ItemCount = 0
		if err := setJSON(txn, key, &rec); err != nil {
			return err
		}
		return txn.Set(nameKey, []byte(t.ID))
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("create tag: %w", err)
	}

	s.emitter.Emit(events.NewTagCreatedEvent(t))
	return nil
}

// getTag loads a tag inside txn, enforcing ownership.
func getTag(txn *badger.Txn, ownerID, tagID string) (*domain.Tag, error) {
	var t domain.Tag
	err := getJSON(txn, tagKey(tagID), &t)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	if t.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the owner has no such tag.
func (s *Store) GetTag(ctx context.Context, ownerID, tagID string) (*domain.Tag, error) {
	var t *domain.Tag
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		t, err = getTag(txn, ownerID, tagID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindTagsByKeys resolves name keys through the owner's name index.
func (s *Store) FindTagsByKeys(ctx context.Context, ownerID string, keys []string) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	if len(keys) == 0 {
		return tags, nil
	}

	err := s.view(ctx, func(txn *badger.Txn) error {
		for _, k := range slices.Compact(slices.Sorted(slices.Values(keys))) {
			item, err := txn.Get(tagNameKey(ownerID, k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			tagID, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			t, err := getTag(txn, ownerID, string(tagID))
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			tags = append(tags, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}

	return tags, nil
}

// ListTags returns the owner's tags ordered by name, with item counts.
func (s *Store) ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(tagKeyIndex + ownerID + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		var tagIDs []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			tagIDs = append(tagIDs, string(val))
		}

		for _, tagID := range tagIDs {
			t, err := getTag(txn, ownerID, tagID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			t.ItemCount = len(scanSuffixes(txn, tagItemsPrefix(tagID)))
			tags = append(tags, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	slices.SortFunc(tags, compareTags)
	return tags, nil
}

// DeleteTag removes a tag, its name key and every link to it.
// Returns store.ErrNotFound if the owner has no such tag.
func (s *Store) DeleteTag(ctx context.Context, ownerID, tagID string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		t, err := getTag(txn, ownerID, tagID)
		if err != nil {
			return err
		}

		keys := [][]byte{tagKey(tagID), tagNameKey(ownerID, t.NameKey)}
		for _, itemID := range scanSuffixes(txn, tagItemsPrefix(tagID)) {
			keys = append(keys, tagItemKey(tagID, itemID), itemTagKey(itemID, tagID))
		}
		return deleteKeys(txn, keys)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete tag: %w", err)
	}

	s.emitter.Emit(events.NewTagDeletedEvent(ownerID, tagID))
	return nil
}

// ReplaceItemTags swaps an item's link set in one transaction.
// Both index directions are rewritten together.
func (s *Store) ReplaceItemTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error {
	unique := slices.Compact(slices.Sorted(slices.Values(tagIDs)))

	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := getItem(txn, ownerID, itemID); err != nil {
			return err
		}

		for _, tagID := range unique {
			if _, err := getTag(txn, ownerID, tagID); errors.Is(err, store.ErrNotFound) {
				return store.ErrInvalidInput.WithMessage("unknown tag " + tagID)
			} else if err != nil {
				return err
			}
		}

		var stale [][]byte
		for _, tagID := range scanSuffixes(txn, itemTagsPrefix(itemID)) {
			stale = append(stale, itemTagKey(itemID, tagID), tagItemKey(tagID, itemID))
		}
		if err := deleteKeys(txn, stale); err != nil {
			return err
		}

		for _, tagID := range unique {
			if err := txn.Set(itemTagKey(itemID, tagID), []byte{}); err != nil {
				return err
			}
			if err := txn.Set(tagItemKey(tagID, itemID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("replace item tags: %w", err)
	}

	s.emitter.Emit(events.NewItemTagsReplacedEvent(ownerID, itemID, unique))
	return nil
}

// GetItemIDsForTag returns the ids of the owner's items linked to a tag.
func (s *Store) GetItemIDsForTag(ctx context.Context, ownerID, tagID string) ([]string, error) {
	itemIDs := []string{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		if _, err := getTag(txn, ownerID, tagID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		itemIDs = append(itemIDs, scanSuffixes(txn, tagItemsPrefix(tagID))...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get tag items: %w", err)
	}

	return itemIDs, nil
}
