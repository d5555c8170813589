package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/store"
)

const owner = "user-alice"

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeStore serves items newest first and can fail or block on demand.
type fakeStore struct {
	mu        sync.Mutex
	items     []*domain.SavedItem
	tagItems  map[string][]string
	listCalls int
	listErr   error
	gates     map[int]chan struct{} // offset → released when closed
}

func newFakeStore(n int) *fakeStore {
	f := &fakeStore{tagItems: map[string][]string{}, gates: map[int]chan struct{}{}}
	for i := range n {
		f.add(fmt.Sprintf("itm-%02d", i), i)
	}
	return f
}

func (f *fakeStore) add(itemID string, minutes int) *domain.SavedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := &domain.SavedItem{
		ID:        itemID,
		UserID:    owner,
		URL:       "https://example.com/" + itemID,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
		Tags:      []*domain.Tag{},
	}
	f.items = append(f.items, item)
	domain.SortByRecency(f.items)
	return item
}

func (f *fakeStore) gate(offset int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[offset] = ch
	return ch
}

func (f *fakeStore) ListItems(_ context.Context, q store.ItemQuery) ([]*domain.SavedItem, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.gates[q.Offset]
	delete(f.gates, q.Offset)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}

	var only map[string]bool
	if q.ItemIDs != nil {
		only = map[string]bool{}
		for _, itemID := range q.ItemIDs {
			only[itemID] = true
		}
	}

	var matched []*domain.SavedItem
	for _, item := range f.items {
		if item.UserID != q.OwnerID || !q.Primary.Matches(item) {
			continue
		}
		if only != nil && !only[item.ID] {
			continue
		}
		cp := *item
		matched = append(matched, &cp)
	}

	out := []*domain.SavedItem{}
	for i := q.Offset; i < len(matched) && len(out) < q.Limit; i++ {
		out = append(out, matched[i])
	}
	return out, nil
}

func (f *fakeStore) GetItemIDsForTag(_ context.Context, _ string, tagID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.tagItems[tagID]...), nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// fakeEditor records writes and applies them to a fakeStore.
type fakeEditor struct {
	store   *fakeStore
	updates []string
	err     error
}

func (e *fakeEditor) Update(_ context.Context, itemID string, upd service.ItemUpdate) (*domain.SavedItem, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.updates = append(e.updates, itemID)
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	for _, item := range e.store.items {
		if item.ID == itemID {
			upd.Patch.Apply(item, time.Now())
			return item, nil
		}
	}
	return nil, domainerrors.NotFound("link not found")
}

func (e *fakeEditor) Delete(_ context.Context, itemID string) error {
	if e.err != nil {
		return e.err
	}
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	for i, item := range e.store.items {
		if item.ID == itemID {
			e.store.items = append(e.store.items[:i], e.store.items[i+1:]...)
			return nil
		}
	}
	return domainerrors.NotFound("link not found")
}

func signedIn() *session.Context {
	s := session.NewContext()
	s.Set(session.Session{UserID: owner})
	return s
}

func newTestEngine(t *testing.T, fs *fakeStore, opts Options) (*Engine, *session.Context) {
	t.Helper()
	sess := signedIn()
	e := New(fs, &fakeEditor{store: fs}, sess, events.NewManager(nil), opts)
	t.Cleanup(e.Close)
	return e, sess
}

func ids(items []*domain.SavedItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func assertDistinct(t *testing.T, items []*domain.SavedItem) {
	t.Helper()
	seen := map[string]bool{}
	for _, item := range items {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}

func TestEngine_Pagination(t *testing.T) {
	fs := newFakeStore(25)
	e, _ := newTestEngine(t, fs, Options{})
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))
	snap := e.Snapshot()
	assert.Len(t, snap.Items, 20)
	assert.True(t, snap.HasMore)
	assert.False(t, snap.Loading)
	assert.Equal(t, "itm-24", snap.Items[0].ID)

	require.NoError(t, e.LoadMore(ctx))
	snap = e.Snapshot()
	assert.Len(t, snap.Items, 25)
	assert.False(t, snap.HasMore)
	assert.False(t, snap.LoadingMore)
	assertDistinct(t, snap.Items)
	assert.Equal(t, "itm-00", snap.Items[24].ID)

	// No next page: LoadMore is a no-op.
	calls := fs.calls()
	require.NoError(t, e.LoadMore(ctx))
	assert.Equal(t, calls, fs.calls())
}

func TestEngine_LoadMoreOverlapIsMerged(t *testing.T) {
	fs := newFakeStore(25)
	e, _ := newTestEngine(t, fs, Options{})
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))

	// A newer item shifts every offset by one, so the next page repeats itm-05.
	fs.add("itm-new", 100)

	require.NoError(t, e.LoadMore(ctx))
	snap := e.Snapshot()
	assertDistinct(t, snap.Items)
	assert.Len(t, snap.Items, 25)
	assert.Equal(t, "itm-24", snap.Items[0].ID)
	assert.Equal(t, "itm-00", snap.Items[len(snap.Items)-1].ID)
}

func TestMerge_LastFetchedWinsAndSorts(t *testing.T) {
	old := &domain.SavedItem{ID: "a", Title: "old", CreatedAt: base}
	newer := &domain.SavedItem{ID: "b", CreatedAt: base.Add(time.Hour)}
	fresh := &domain.SavedItem{ID: "a", Title: "fresh", CreatedAt: base}
	tie := &domain.SavedItem{ID: "c", CreatedAt: base}

	got := merge([]*domain.SavedItem{old}, []*domain.SavedItem{newer, fresh, tie})
	assert.Equal(t, []string{"b", "c", "a"}, ids(got))
	assert.Equal(t, "fresh", got[2].Title)
}

func TestEngine_ErrorKeepsItems(t *testing.T) {
	fs := newFakeStore(25)
	e, _ := newTestEngine(t, fs, Options{})
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))

	fs.setErr(errors.New("connection reset"))
	err := e.LoadMore(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrStore)

	snap := e.Snapshot()
	assert.Len(t, snap.Items, 20)
	require.Error(t, snap.Error)
	assert.Contains(t, snap.Error.Error(), "connection reset")
	assert.False(t, snap.LoadingMore)

	err = e.Refresh(ctx)
	require.Error(t, err)
	snap = e.Snapshot()
	assert.Len(t, snap.Items, 20)
	assert.False(t, snap.Refreshing)

	fs.setErr(nil)
	require.NoError(t, e.Refresh(ctx))
	assert.NoError(t, e.Snapshot().Error)
}

func TestEngine_TagFilter(t *testing.T) {
	fs := newFakeStore(5)
	fs.tagItems["tag-work"] = []string{"itm-01", "itm-03"}
	e, _ := newTestEngine(t, fs, Options{})
	ctx := context.Background()

	require.NoError(t, e.SetFilter(ctx, Filter{TagID: "tag-work"}))
	snap := e.Snapshot()
	assert.Equal(t, []string{"itm-03", "itm-01"}, ids(snap.Items))
	assert.False(t, snap.HasMore)
	assert.Equal(t, domain.FilterAll, snap.Filter.Primary)

	// A tag with no items never reaches the item query.
	calls := fs.calls()
	require.NoError(t, e.SetFilter(ctx, Filter{TagID: "tag-empty"}))
	assert.Equal(t, calls, fs.calls())
	assert.Empty(t, e.Snapshot().Items)
}

func TestEngine_FavoritesExcludeArchived(t *testing.T) {
	fs := newFakeStore(0)
	fav := fs.add("itm-fav", 1)
	fav.IsFavorite = true
	both := fs.add("itm-both", 2)
	both.IsFavorite = true
	both.IsArchived = true
	e, _ := newTestEngine(t, fs, Options{})

	require.NoError(t, e.SetFilter(context.Background(), Filter{Primary: domain.FilterFavorites}))
	assert.Equal(t, []string{"itm-fav"}, ids(e.Snapshot().Items))

	require.NoError(t, e.SetFilter(context.Background(), Filter{Primary: domain.FilterArchived}))
	assert.Equal(t, []string{"itm-both"}, ids(e.Snapshot().Items))
}

func TestEngine_StaleLoadMoreIsDropped(t *testing.T) {
	fs := newFakeStore(25)
	e, _ := newTestEngine(t, fs, Options{})
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))

	release := fs.gate(20)
	done := make(chan error, 1)
	go func() { done <- e.LoadMore(ctx) }()

	require.Eventually(t, func() bool { return e.Snapshot().LoadingMore }, time.Second, time.Millisecond)

	// A newer load replaces the collection while the page is in flight.
	require.NoError(t, e.SetFilter(ctx, Filter{Primary: domain.FilterFavorites}))
	close(release)
	require.NoError(t, <-done)

	snap := e.Snapshot()
	assert.Empty(t, snap.Items, "stale page must not resurrect")
	assert.False(t, snap.LoadingMore)
}

func TestEngine_LoadMoreWaitsForReload(t *testing.T) {
	fs := newFakeStore(60)
	e, _ := newTestEngine(t, fs, Options{})
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))
	require.NoError(t, e.LoadMore(ctx))
	require.Len(t, e.Snapshot().Items, 40)

	release := fs.gate(0)
	done := make(chan error, 1)
	go func() { done <- e.Refresh(ctx) }()

	require.Eventually(t, func() bool { return e.Snapshot().Refreshing }, time.Second, time.Millisecond)

	// The refresh will reset the offset, so a page at the old one must not be fetched.
	calls := fs.calls()
	require.NoError(t, e.LoadMore(ctx))
	assert.Equal(t, calls, fs.calls())

	close(release)
	require.NoError(t, <-done)
	require.Len(t, e.Snapshot().Items, 20)

	for e.Snapshot().HasMore {
		require.NoError(t, e.LoadMore(ctx))
	}

	snap := e.Snapshot()
	require.Len(t, snap.Items, 60)
	for i, item := range snap.Items {
		assert.Equal(t, fmt.Sprintf("itm-%02d", 59-i), item.ID)
	}
}

func TestEngine_MutateAndRemoveReload(t *testing.T) {
	fs := newFakeStore(3)
	var mu sync.Mutex
	var changes int
	e, _ := newTestEngine(t, fs, Options{OnChange: func(Snapshot) {
		mu.Lock()
		changes++
		mu.Unlock()
	}})
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))

	archived := true
	require.NoError(t, e.Mutate(ctx, "itm-02", service.ItemUpdate{Patch: domain.ItemPatch{IsArchived: &archived}}))
	assert.Equal(t, []string{"itm-01", "itm-00"}, ids(e.Snapshot().Items))

	require.NoError(t, e.Remove(ctx, "itm-00"))
	assert.Equal(t, []string{"itm-01"}, ids(e.Snapshot().Items))

	mu.Lock()
	assert.Positive(t, changes)
	mu.Unlock()
}

func TestEngine_MutateFailureKeepsItems(t *testing.T) {
	fs := newFakeStore(3)
	sess := signedIn()
	editor := &fakeEditor{store: fs, err: domainerrors.Store(errors.New("locked"), "could not update link")}
	e := New(fs, editor, sess, events.NewManager(nil), Options{})
	t.Cleanup(e.Close)
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))
	err := e.Remove(ctx, "itm-00")
	require.Error(t, err)

	snap := e.Snapshot()
	assert.Len(t, snap.Items, 3)
	assert.ErrorIs(t, snap.Error, domainerrors.ErrStore)
}

func TestEngine_SignedOut(t *testing.T) {
	fs := newFakeStore(3)
	e, sess := newTestEngine(t, fs, Options{})
	ctx := context.Background()

	require.NoError(t, e.LoadInitial(ctx))
	require.Len(t, e.Snapshot().Items, 3)

	sess.Clear()
	calls := fs.calls()
	require.NoError(t, e.LoadInitial(ctx))
	assert.Empty(t, e.Snapshot().Items)
	assert.Equal(t, calls, fs.calls())
}
