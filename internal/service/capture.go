package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/id"
	"github.com/linkstash/linkstash/internal/normalize"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/validation"
)

// CaptureRequest is a link to save, from the add form or a share.
// URL wins over Text; Text is scanned for the first http(s) link otherwise.
type CaptureRequest struct {
	URL       string   `json:"url" validate:"required_without=Text,max=4096"`
	Text      string   `json:"text" validate:"max=20000"`
	Title     string   `json:"title" validate:"max=1000"`
	Notes     string   `json:"notes" validate:"max=20000"`
	SourceApp string   `json:"source_app" validate:"max=255"`
	TagNames  []string `json:"tag_names" validate:"max=100,dive,max=100"`
}

// Enricher runs after an item is saved, e.g. to fetch page metadata.
type Enricher interface {
	Enrich(ctx context.Context, item *domain.SavedItem) error
}

// NoopEnricher leaves items as saved.
type NoopEnricher struct{}

// Enrich implements Enricher as a no-op.
func (NoopEnricher) Enrich(context.Context, *domain.SavedItem) error { return nil }

// CaptureService turns capture requests into saved items.
type CaptureService struct {
	store     store.ItemStore
	tags      *TagService
	session   *session.Context
	validator *validation.Validator
	enricher  Enricher
	logger    *slog.Logger
}

// NewCaptureService creates a new capture service with a no-op enricher.
func NewCaptureService(
	store store.ItemStore,
	tags *TagService,
	sess *session.Context,
	validator *validation.Validator,
	logger *slog.Logger,
) *CaptureService {
	return &CaptureService{
		store:     store,
		tags:      tags,
		session:   sess,
		validator: validator,
		enricher:  NoopEnricher{},
		logger:    logger,
	}
}

// SetEnricher replaces the post-save hook. Nil restores the no-op.
func (s *CaptureService) SetEnricher(e Enricher) {
	if e == nil {
		e = NoopEnricher{}
	}
	s.enricher = e
}

// CaptureAndSave saves a link for the signed-in user.
//
// Errors: UNAUTHENTICATED without a session, INVALID_INPUT when the request
// fails validation or holds no usable URL, STORE_ERROR when persisting fails.
// If only tag linking fails, the saved item is returned along with the
// STORE_ERROR; the item is kept without tags.
func (s *CaptureService) CaptureAndSave(ctx context.Context, req CaptureRequest) (*domain.SavedItem, error) {
	sess, ok := s.session.Current()
	if !ok {
		return nil, domainerrors.Unauthenticated("sign in to save links")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	normalized, ok := normalize.URL(normalize.Input{
		URL:       req.URL,
		RawText:   req.Text,
		Title:     req.Title,
		Notes:     req.Notes,
		SourceApp: req.SourceApp,
	})
	if !ok {
		return nil, domainerrors.InvalidInput(errInvalidURL)
	}

	itemID, err := id.Item()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not save link")
	}

	now := time.Now().UTC()
	item := &domain.SavedItem{
		ID:               itemID,
		UserID:           sess.UserID,
		URL:              normalized.URL,
		Domain:           normalized.Domain,
		Title:            normalized.Title,
		Notes:            normalized.Notes,
		SourceApp:        normalized.SourceApp,
		ProcessingStatus: domain.ProcessingComplete,
		Tags:             []*domain.Tag{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, domainerrors.Store(err, "could not save link")
	}

	tags, err := s.tags.LinkItemTags(ctx, sess.UserID, item.ID, req.TagNames)
	if err != nil {
		s.logger.Warn("link saved without tags",
			"item_id", item.ID,
			"user_id", sess.UserID,
			"error", err,
		)
		return item, domainerrors.Store(err, "link saved but its tags could not be applied")
	}
	if tags != nil {
		item.Tags = tags
	}

	if err := s.enricher.Enrich(ctx, item); err != nil {
		s.logger.Warn("enrichment failed", "item_id", item.ID, "error", err)
	}

	s.logger.Info("link captured",
		"item_id", item.ID,
		"user_id", sess.UserID,
		"domain", item.Domain,
		"tags", len(item.Tags),
	)

	return item, nil
}
