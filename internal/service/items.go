package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/normalize"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/validation"
)

// ItemUpdate is an edit of a saved item.
// TagNames follows LinkItemTags: nil keeps the links, empty clears them.
type ItemUpdate struct {
	Patch    domain.ItemPatch `json:"patch"`
	TagNames []string         `json:"tag_names,omitempty" validate:"max=100,dive,max=100"`
}

// ItemService reads and edits the signed-in user's saved items.
type ItemService struct {
	store     store.Store
	tags      *TagService
	session   *session.Context
	validator *validation.Validator
	logger    *slog.Logger
}

// NewItemService creates a new item service.
func NewItemService(
	store store.Store,
	tags *TagService,
	sess *session.Context,
	validator *validation.Validator,
	logger *slog.Logger,
) *ItemService {
	return &ItemService{
		store:     store,
		tags:      tags,
		session:   sess,
		validator: validator,
		logger:    logger,
	}
}

// owner returns the signed-in user's id.
func (s *ItemService) owner() (string, error) {
	sess, ok := s.session.Current()
	if !ok {
		return "", domainerrors.Unauthenticated("sign in to manage links")
	}
	return sess.UserID, nil
}

// List returns a page of the signed-in user's items. OwnerID in q is ignored.
func (s *ItemService) List(ctx context.Context, q store.ItemQuery) ([]*domain.SavedItem, error) {
	ownerID, err := s.owner()
	if err != nil {
		return nil, err
	}
	q.OwnerID = ownerID

	items, err := s.store.ListItems(ctx, q)
	if err != nil {
		return nil, storeError(err, "could not load links")
	}
	return items, nil
}

// Get returns one item with its tags.
func (s *ItemService) Get(ctx context.Context, itemID string) (*domain.SavedItem, error) {
	ownerID, err := s.owner()
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, storeError(err, "link not found")
	}
	return item, nil
}

// Update edits an item. A new URL is normalized and the domain recomputed;
// text fields are trimmed and an empty value clears them.
func (s *ItemService) Update(ctx context.Context, itemID string, upd ItemUpdate) (*domain.SavedItem, error) {
	ownerID, err := s.owner()
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(upd); err != nil {
		return nil, err
	}

	patch, err := cleanPatch(upd.Patch)
	if err != nil {
		return nil, err
	}

	var item *domain.SavedItem
	if patch.IsEmpty() {
		item, err = s.store.GetItem(ctx, ownerID, itemID)
	} else {
		item, err = s.store.UpdateItem(ctx, ownerID, itemID, patch)
	}
	if err != nil {
		return nil, storeError(err, "could not update link")
	}

	if upd.TagNames != nil {
		if _, err := s.tags.LinkItemTags(ctx, ownerID, itemID, upd.TagNames); err != nil {
			return nil, err
		}
		// Re-read so tags come back in the store's order.
		if item, err = s.store.GetItem(ctx, ownerID, itemID); err != nil {
			return nil, storeError(err, "could not load link")
		}
	}

	s.logger.Info("link updated", "item_id", itemID, "user_id", ownerID)
	return item, nil
}

// cleanPatch normalizes a new URL and trims optional text fields. Domain is
// always derived from the URL; a caller-supplied one is ignored.
func cleanPatch(p domain.ItemPatch) (domain.ItemPatch, error) {
	p.Domain = nil
	if p.URL != nil {
		normalized, ok := normalize.URL(normalize.Input{URL: *p.URL})
		if !ok {
			return p, domainerrors.InvalidInputWithDetails(errInvalidURL,
				map[string]string{"url": "must be a valid URL that includes http or https"})
		}
		p.URL = &normalized.URL
		p.Domain = &normalized.Domain
	}
	for _, field := range []**string{&p.Title, &p.Notes, &p.SourceApp} {
		if *field != nil {
			trimmed := strings.TrimSpace(**field)
			*field = &trimmed
		}
	}
	return p, nil
}

// Delete removes an item and its tag links.
func (s *ItemService) Delete(ctx context.Context, itemID string) error {
	ownerID, err := s.owner()
	if err != nil {
		return err
	}

	if err := s.store.DeleteItem(ctx, ownerID, itemID); err != nil {
		return storeError(err, "could not delete link")
	}

	s.logger.Info("link deleted", "item_id", itemID, "user_id", ownerID)
	return nil
}

// ToggleFavorite flips the item's favorite flag.
func (s *ItemService) ToggleFavorite(ctx context.Context, itemID string) (*domain.SavedItem, error) {
	return s.toggle(ctx, itemID, func(item *domain.SavedItem) domain.ItemPatch {
		v := !item.IsFavorite
		return domain.ItemPatch{IsFavorite: &v}
	})
}

// ToggleArchive flips the item's archived flag.
func (s *ItemService) ToggleArchive(ctx context.Context, itemID string) (*domain.SavedItem, error) {
	return s.toggle(ctx, itemID, func(item *domain.SavedItem) domain.ItemPatch {
		v := !item.IsArchived
		return domain.ItemPatch{IsArchived: &v}
	})
}

func (s *ItemService) toggle(ctx context.Context, itemID string, flip func(*domain.SavedItem) domain.ItemPatch) (*domain.SavedItem, error) {
	item, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, itemID, ItemUpdate{Patch: flip(item)})
}
