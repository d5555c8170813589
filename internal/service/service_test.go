package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/store/sqlite"
	"github.com/linkstash/linkstash/internal/validation"
)

const testOwner = "user-alice"

type testEnv struct {
	store   store.Store
	session *session.Context
	tags    *TagService
	capture *CaptureService
	items   *ItemService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testStore, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { testStore.Close() })

	return newTestEnv(testStore)
}

func newTestEnv(s store.Store) *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := session.NewContext()
	sess.Set(session.Session{UserID: testOwner})
	v := validation.New()
	tags := NewTagService(s, logger)

	return &testEnv{
		store:   s,
		session: sess,
		tags:    tags,
		capture: NewCaptureService(s, tags, sess, v, logger),
		items:   NewItemService(s, tags, sess, v, logger),
	}
}

// failingLinks is a store whose link replacement always fails.
type failingLinks struct {
	store.Store
}

var errLinkFailed = errors.New("disk full")

func (failingLinks) ReplaceItemTags(context.Context, string, string, []string) error {
	return errLinkFailed
}

func sessionFor(userID string) session.Session {
	return session.Session{UserID: userID}
}
