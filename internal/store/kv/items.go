package kv

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/store"
)

// CreateItem stores a new saved item and its recency index entry.
// Returns store.ErrAlreadyExists on id collision.
func (s *Store) CreateItem(ctx context.Context, item *domain.SavedItem) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := itemKey(item.ID)
		if _, err := txn.Get(key); err == nil {
			return store.ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, key, stored(item)); err != nil {
			return err
		}
		return txn.Set(createdKey(item.UserID, item.CreatedAt, item.ID), []byte{})
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("create item: %w", err)
	}

	if item.Tags == nil {
		item.Tags = []*domain.Tag{}
	}
	s.emitter.Emit(events.NewItemCreatedEvent(item))
	return nil
}

// stored returns the persisted form of item: tags live in link indexes.
func stored(item *domain.SavedItem) *domain.SavedItem {
	cp := *item
	cp.Tags = nil
	return &cp
}

// GetItem retrieves an item with its tags.
// Returns store.ErrNotFound if the owner has no such item.
func (s *Store) GetItem(ctx context.Context, ownerID, itemID string) (*domain.SavedItem, error) {
	var item *domain.SavedItem
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		if item, err = getItem(txn, ownerID, itemID); err != nil {
			return err
		}
		return attachTags(txn, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// getItem loads an item inside txn, enforcing ownership.
func getItem(txn *badger.Txn, ownerID, itemID string) (*domain.SavedItem, error) {
	var item domain.SavedItem
	err := getJSON(txn, itemKey(itemID), &item)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	item.Tags = []*domain.Tag{}
	return &item, nil
}

// attachTags loads the item's tags through the link index, ordered by name.
func attachTags(txn *badger.Txn, item *domain.SavedItem) error {
	tags := []*domain.Tag{}
	for _, tagID := range scanSuffixes(txn, itemTagsPrefix(item.ID)) {
		var t domain.Tag
		err := getJSON(txn, tagKey(tagID), &t)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get tag %s: %w", tagID, err)
		}
		tags = append(tags, &t)
	}
	slices.SortFunc(tags, compareTags)
	item.Tags = tags
	return nil
}

// UpdateItem applies patch to an item.
// Returns store.ErrNotFound if the owner has no such item.
func (s *Store) UpdateItem(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (*domain.SavedItem, error) {
	var item *domain.SavedItem
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		if item, err = getItem(txn, ownerID, itemID); err != nil {
			return err
		}
		patch.Apply(item, time.Now().UTC())
		if err := setJSON(txn, itemKey(itemID), stored(item)); err != nil {
			return err
		}
		return attachTags(txn, item)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.emitter.Emit(events.NewItemUpdatedEvent(item))
	return item, nil
}

// DeleteItem removes an item, its recency entry and its links.
// Returns store.ErrNotFound if the owner has no such item.
func (s *Store) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		item, err := getItem(txn, ownerID, itemID)
		if err != nil {
			return err
		}

		keys := [][]byte{itemKey(itemID), createdKey(ownerID, item.CreatedAt, itemID)}
		for _, tagID := range scanSuffixes(txn, itemTagsPrefix(itemID)) {
			keys = append(keys, itemTagKey(itemID, tagID), tagItemKey(tagID, itemID))
		}
		return deleteKeys(txn, keys)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete item: %w", err)
	}

	s.emitter.Emit(events.NewItemDeletedEvent(ownerID, itemID))
	return nil
}

// ListItems walks the owner's recency index newest first and filters in memory.
// Search folds case with strings.ToLower, so it also matches non-ASCII text.
func (s *Store) ListItems(ctx context.Context, q store.ItemQuery) ([]*domain.SavedItem, error) {
	items := []*domain.SavedItem{}
	if q.ItemIDs != nil && len(q.ItemIDs) == 0 {
		return items, nil
	}

	var only map[string]struct{}
	if q.ItemIDs != nil {
		only = make(map[string]struct{}, len(q.ItemIDs))
		for _, itemID := range q.ItemIDs {
			only[itemID] = struct{}{}
		}
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	skip := max(q.Offset, 0)

	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := createdPrefix(q.OwnerID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(slices.Clone(prefix), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			_, itemID, ok := strings.Cut(string(it.Item().Key()[len(prefix):]), ":")
			if !ok {
				continue
			}
			if only != nil {
				if _, want := only[itemID]; !want {
					continue
				}
			}

			item, err := getItem(txn, q.OwnerID, itemID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !q.Primary.Matches(item) || !matchesSearch(item, search) {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			if err := attachTags(txn, item); err != nil {
				return err
			}
			items = append(items, item)
			if q.Limit > 0 && len(items) == q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	return items, nil
}

func matchesSearch(item *domain.SavedItem, search string) bool {
	if search == "" {
		return true
	}
	for _, field := range []string{item.Title, item.Notes, item.URL} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func compareTags(a, b *domain.Tag) int {
	if c := cmp.Compare(a.NameKey, b.NameKey); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
