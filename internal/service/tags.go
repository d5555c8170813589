package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/id"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/util"
)

// TagService reconciles free-form tag names against an owner's tag set.
// Names are compared by util.TagKey; the first spelling seen is the one stored.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// EnsureTags returns the owner's tags for names, creating the missing ones.
// The result has one tag per distinct key, in first-seen order.
func (s *TagService) EnsureTags(ctx context.Context, ownerID string, names []string) ([]*domain.Tag, error) {
	normalized := util.NormalizeTagNames(names)
	if len(normalized.Keys) == 0 {
		return []*domain.Tag{}, nil
	}

	// 1. Look up what already exists.
	existing, err := s.store.FindTagsByKeys(ctx, ownerID, normalized.Keys)
	if err != nil {
		return nil, storeError(err, "could not look up tags")
	}
	byKey := make(map[string]*domain.Tag, len(existing))
	for _, t := range existing {
		byKey[t.NameKey] = t
	}

	// 2. Create the rest.
	tags := make([]*domain.Tag, 0, len(normalized.Keys))
	created := 0
	for _, key := range normalized.Keys {
		if t, ok := byKey[key]; ok {
			tags = append(tags, t)
			continue
		}

		t, isNew, err := s.findOrCreate(ctx, ownerID, key, normalized.Display[key])
		if err != nil {
			return nil, err
		}
		if isNew {
			created++
		}
		tags = append(tags, t)
	}

	if created > 0 {
		s.logger.Info("tags created",
			"user_id", ownerID,
			"created", created,
			"requested", len(normalized.Keys),
		)
	}

	return tags, nil
}

// findOrCreate creates a tag for key. When a concurrent call won the insert,
// the store rejects ours and the winner is returned instead.
func (s *TagService) findOrCreate(ctx context.Context, ownerID, key, display string) (*domain.Tag, bool, error) {
	tagID, err := id.Tag()
	if err != nil {
		return nil, false, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not create tag")
	}

	t := &domain.Tag{
		ID:        tagID,
		UserID:    ownerID,
		Name:      display,
		NameKey:   key,
		CreatedAt: time.Now().UTC(),
	}

	err = s.store.CreateTag(ctx, t)
	if err == nil {
		return t, true, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return nil, false, storeError(err, "could not create tag")
	}

	// Race condition: another caller created it.
	found, err := s.store.FindTagsByKeys(ctx, ownerID, []string{key})
	if err != nil {
		return nil, false, storeError(err, "could not look up tags")
	}
	if len(found) == 0 {
		return nil, false, domainerrors.Storef(store.ErrAlreadyExists, "tag %q could not be created", display)
	}

	s.logger.Debug("tag created concurrently, reusing", "user_id", ownerID, "tag_id", found[0].ID)
	return found[0], false, nil
}

// LinkItemTags replaces the item's whole tag set with names.
// A nil names leaves the links untouched and returns nil; an empty, non-nil
// names removes every link.
func (s *TagService) LinkItemTags(ctx context.Context, ownerID, itemID string, names []string) ([]*domain.Tag, error) {
	if names == nil {
		return nil, nil
	}

	tags, err := s.EnsureTags(ctx, ownerID, names)
	if err != nil {
		return nil, err
	}

	tagIDs := make([]string, len(tags))
	for i, t := range tags {
		tagIDs[i] = t.ID
	}

	if err := s.store.ReplaceItemTags(ctx, ownerID, itemID, tagIDs); err != nil {
		return nil, storeError(err, "could not update item tags")
	}

	s.logger.Info("item tags replaced",
		"user_id", ownerID,
		"item_id", itemID,
		"tag_count", len(tags),
	)

	return tags, nil
}

// ListTags returns the owner's tags ordered by name, with item counts.
func (s *TagService) ListTags(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx, ownerID)
	if err != nil {
		return nil, storeError(err, "could not load tags")
	}
	return tags, nil
}

// GetTag returns one of the owner's tags.
func (s *TagService) GetTag(ctx context.Context, ownerID, tagID string) (*domain.Tag, error) {
	t, err := s.store.GetTag(ctx, ownerID, tagID)
	if err != nil {
		return nil, storeError(err, "tag not found")
	}
	return t, nil
}

// CreateTag reconciles a single name, so creating "work" when "Work" exists
// returns the existing tag.
func (s *TagService) CreateTag(ctx context.Context, ownerID, name string) (*domain.Tag, error) {
	if util.TagKey(name) == "" {
		return nil, domainerrors.InvalidInput("tag name is required")
	}

	tags, err := s.EnsureTags(ctx, ownerID, []string{name})
	if err != nil {
		return nil, err
	}
	return tags[0], nil
}

// DeleteTag removes a tag and detaches it from every item.
func (s *TagService) DeleteTag(ctx context.Context, ownerID, tagID string) error {
	if err := s.store.DeleteTag(ctx, ownerID, tagID); err != nil {
		return storeError(err, "could not delete tag")
	}

	s.logger.Info("tag deleted", "user_id", ownerID, "tag_id", tagID)
	return nil
}

// tagNames implements fuzzy.Source for a tag slice.
type tagNames []*domain.Tag

func (tn tagNames) String(i int) string { return tn[i].Name }

func (tn tagNames) Len() int { return len(tn) }

// SuggestTags ranks the owner's tags against a partially typed name.
// An empty query returns the most used tags. limit <= 0 means no limit.
func (s *TagService) SuggestTags(ctx context.Context, ownerID, query string, limit int) ([]*domain.Tag, error) {
	tags, err := s.ListTags(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var out []*domain.Tag
	if query = strings.TrimSpace(query); query == "" {
		out = slices.Clone(tags)
		slices.SortStableFunc(out, func(a, b *domain.Tag) int {
			return cmp.Compare(b.ItemCount, a.ItemCount)
		})
	} else {
		matches := fuzzy.FindFrom(query, tagNames(tags))
		out = make([]*domain.Tag, len(matches))
		for i, m := range matches {
			out[i] = tags[m.Index]
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
