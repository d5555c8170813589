package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/store"
)

func TestCaptureAndSave_FromURL(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	item, err := env.capture.CaptureAndSave(ctx, CaptureRequest{
		URL:       "  HTTPS://Example.COM:443/a?b=1  ",
		Title:     "  A title ",
		Notes:     "   ",
		SourceApp: "com.example.reader",
		TagNames:  []string{"Work", "work"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/a?b=1", item.URL)
	assert.Equal(t, "example.com", item.Domain)
	assert.Equal(t, "A title", item.Title)
	assert.Empty(t, item.Notes)
	assert.Equal(t, "com.example.reader", item.SourceApp)
	assert.Equal(t, testOwner, item.UserID)
	assert.Equal(t, domain.ProcessingComplete, item.ProcessingStatus)
	assert.False(t, item.IsFavorite)
	assert.False(t, item.IsArchived)
	require.Len(t, item.Tags, 1)
	assert.Equal(t, "Work", item.Tags[0].Name)

	stored, err := env.store.GetItem(ctx, testOwner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.URL, stored.URL)
	assert.Len(t, stored.Tags, 1)
}

func TestCaptureAndSave_FromText(t *testing.T) {
	env := setupTestEnv(t)

	item, err := env.capture.CaptureAndSave(context.Background(), CaptureRequest{
		Text: "check this out (https://example.com/a).",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", item.URL)
	assert.Equal(t, "example.com", item.Domain)
	assert.Empty(t, item.Tags)
}

func TestCaptureAndSave_Unauthenticated(t *testing.T) {
	env := setupTestEnv(t)
	env.session.Clear()

	item, err := env.capture.CaptureAndSave(context.Background(), CaptureRequest{URL: "https://example.com"})
	assert.Nil(t, item)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthenticated)

	items, err := env.store.ListItems(context.Background(), store.ItemQuery{OwnerID: testOwner})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCaptureAndSave_InvalidInput(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		req  CaptureRequest
	}{
		{"not a url", CaptureRequest{URL: "not a url"}},
		{"text without links", CaptureRequest{Text: "no links here"}},
		{"nothing", CaptureRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := env.capture.CaptureAndSave(context.Background(), tt.req)
			assert.Nil(t, item)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
			assert.True(t, domainerrors.CodeOf(err).Recoverable())
		})
	}
}

func TestCaptureAndSave_LinkFailureKeepsItem(t *testing.T) {
	base := setupTestEnv(t)
	env := newTestEnv(failingLinks{Store: base.store})
	ctx := context.Background()

	item, err := env.capture.CaptureAndSave(ctx, CaptureRequest{
		URL:      "https://example.com/a",
		TagNames: []string{"Work"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrStore)
	assert.ErrorIs(t, err, errLinkFailed)
	require.NotNil(t, item)
	assert.Contains(t, err.Error(), "disk full")

	stored, err := base.store.GetItem(ctx, testOwner, item.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Tags)
}

type recordingEnricher struct {
	seen []string
}

func (r *recordingEnricher) Enrich(_ context.Context, item *domain.SavedItem) error {
	r.seen = append(r.seen, item.ID)
	return nil
}

func TestCaptureAndSave_RunsEnricher(t *testing.T) {
	env := setupTestEnv(t)
	enricher := &recordingEnricher{}
	env.capture.SetEnricher(enricher)

	item, err := env.capture.CaptureAndSave(context.Background(), CaptureRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, enricher.seen)
	assert.Equal(t, "https://example.com/", item.URL)
}
