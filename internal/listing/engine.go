// Package listing keeps a paged, filtered, newest-first view of the signed-in
// user's saved items and reloads it when the items change.
package listing

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/store"
)

// PageSize is the number of items fetched per page.
const PageSize = 20

// Filter selects which items the engine shows. Axes compose.
type Filter struct {
	Search  string               `json:"search,omitempty"`
	TagID   string               `json:"tag_id,omitempty"`
	Primary domain.PrimaryFilter `json:"primary,omitempty"`
}

func (f Filter) normalized() Filter {
	f.Search = strings.TrimSpace(f.Search)
	if f.Primary == "" {
		f.Primary = domain.FilterAll
	}
	return f
}

// Snapshot is the engine state handed to the view layer.
type Snapshot struct {
	Items       []*domain.SavedItem
	Filter      Filter
	Error       error
	Loading     bool
	LoadingMore bool
	Refreshing  bool
	HasMore     bool
}

// Store is the read side the engine queries.
type Store interface {
	ListItems(ctx context.Context, q store.ItemQuery) ([]*domain.SavedItem, error)
	GetItemIDsForTag(ctx context.Context, ownerID, tagID string) ([]string, error)
}

// Editor performs the writes behind Mutate and Remove.
type Editor interface {
	Update(ctx context.Context, itemID string, upd service.ItemUpdate) (*domain.SavedItem, error)
	Delete(ctx context.Context, itemID string) error
}

// Notifier hands out per-owner change subscriptions.
type Notifier interface {
	Subscribe(userID string) (*events.Subscription, error)
}

// Options configures an Engine.
type Options struct {
	// OnChange receives every state change. Calls are serialized; the callback
	// must not call back into the engine synchronously.
	OnChange func(Snapshot)
	Logger   *slog.Logger
}

// Engine is one listing session. Safe for concurrent use.
//
// Every load that replaces the collection bumps a generation counter. A load
// or LoadMore whose generation is no longer current when it returns is
// dropped, so a slow response can never resurrect stale results.
type Engine struct {
	store    Store
	editor   Editor
	session  *session.Context
	notifier Notifier
	onChange func(Snapshot)
	logger   *slog.Logger

	mu          sync.Mutex
	filter      Filter
	items       []*domain.SavedItem
	offset      int
	hasMore     bool
	loading     bool
	loadingMore bool
	refreshing  bool
	err         error
	generation  uint64

	notifyMu sync.Mutex

	// lifecycle
	runCtx      context.Context
	cancel      context.CancelFunc
	sub         *events.Subscription
	unsubscribe func()
	closed      bool
	wg          sync.WaitGroup
}

// New creates an engine showing all unarchived items.
func New(store Store, editor Editor, sess *session.Context, notifier Notifier, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:    store,
		editor:   editor,
		session:  sess,
		notifier: notifier,
		onChange: opts.OnChange,
		logger:   logger,
		filter:   Filter{Primary: domain.FilterAll},
		items:    []*domain.SavedItem{},
	}
}

// Snapshot returns the current state. Items is a copy of the collection.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Items:       slices.Clone(e.items),
		Filter:      e.filter,
		Error:       e.err,
		Loading:     e.loading,
		LoadingMore: e.loadingMore,
		Refreshing:  e.refreshing,
		HasMore:     e.hasMore,
	}
}

// notify hands the latest state to OnChange.
func (e *Engine) notify() {
	if e.onChange == nil {
		return
	}
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	e.onChange(e.Snapshot())
}

// SetFilter switches the filter and reloads the first page.
func (e *Engine) SetFilter(ctx context.Context, f Filter) error {
	e.mu.Lock()
	e.filter = f.normalized()
	e.mu.Unlock()
	return e.load(ctx, false)
}

// LoadInitial fetches the first page and replaces the collection.
func (e *Engine) LoadInitial(ctx context.Context) error {
	return e.load(ctx, false)
}

// Refresh is LoadInitial reported through Refreshing instead of Loading.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.load(ctx, true)
}

func (e *Engine) load(ctx context.Context, refreshing bool) error {
	ownerID := e.session.UserID()

	e.mu.Lock()
	e.generation++
	gen := e.generation
	filter := e.filter
	if ownerID == "" {
		// Signed out: nothing to show and nothing to query.
		e.items = []*domain.SavedItem{}
		e.offset = 0
		e.hasMore = false
		e.loading, e.loadingMore, e.refreshing = false, false, false
		e.err = nil
		e.mu.Unlock()
		e.notify()
		return nil
	}
	e.err = nil
	if refreshing {
		e.refreshing = true
	} else {
		e.loading = true
	}
	e.mu.Unlock()
	e.notify()

	page, err := e.fetch(ctx, ownerID, filter, 0)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("dropping stale page", "generation", gen)
		return nil
	}
	// Any LoadMore still in flight started before this load and is stale now.
	e.loading, e.loadingMore, e.refreshing = false, false, false
	if err != nil {
		e.err = err
	} else {
		e.items = page
		e.offset = len(page)
		e.hasMore = len(page) == PageSize
	}
	e.mu.Unlock()
	e.notify()

	return err
}

// LoadMore fetches the next page and merges it by id into the collection.
// It does nothing when there is no next page, a LoadMore is running, or a
// load is replacing the collection: the offset it would read is about to
// become meaningless.
func (e *Engine) LoadMore(ctx context.Context) error {
	ownerID := e.session.UserID()

	e.mu.Lock()
	if ownerID == "" || !e.hasMore || e.loadingMore || e.loading || e.refreshing {
		e.mu.Unlock()
		return nil
	}
	gen := e.generation
	filter := e.filter
	offset := e.offset
	e.loadingMore = true
	e.err = nil
	e.mu.Unlock()
	e.notify()

	page, err := e.fetch(ctx, ownerID, filter, offset)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("dropping stale page", "generation", gen, "offset", offset)
		return nil
	}
	e.loadingMore = false
	if current := e.offset; current != offset {
		e.mu.Unlock()
		e.notify()
		e.logger.Debug("dropping page fetched at a moved offset", "offset", offset, "current", current)
		return nil
	}
	if err != nil {
		e.err = err
	} else {
		e.items = merge(e.items, page)
		e.offset = offset + len(page)
		e.hasMore = len(page) == PageSize
	}
	e.mu.Unlock()
	e.notify()

	return err
}

// merge unions page into items by id, the page winning on conflicts, and
// re-sorts newest first.
func merge(items, page []*domain.SavedItem) []*domain.SavedItem {
	out := slices.Clone(items)
	index := make(map[string]int, len(out))
	for i, item := range out {
		index[item.ID] = i
	}
	for _, item := range page {
		if i, ok := index[item.ID]; ok {
			out[i] = item
			continue
		}
		index[item.ID] = len(out)
		out = append(out, item)
	}
	domain.SortByRecency(out)
	return out
}

// fetch runs one page query. A tag filter is resolved to item ids first; a tag
// with no items short-circuits without an item query.
func (e *Engine) fetch(ctx context.Context, ownerID string, f Filter, offset int) ([]*domain.SavedItem, error) {
	q := store.ItemQuery{
		OwnerID: ownerID,
		Search:  f.Search,
		Primary: f.Primary,
		Offset:  offset,
		Limit:   PageSize,
	}

	if f.TagID != "" {
		itemIDs, err := e.store.GetItemIDsForTag(ctx, ownerID, f.TagID)
		if err != nil {
			return nil, domainerrors.Store(err, "could not load links")
		}
		if len(itemIDs) == 0 {
			return []*domain.SavedItem{}, nil
		}
		q.ItemIDs = itemIDs
	}

	items, err := e.store.ListItems(ctx, q)
	if err != nil {
		return nil, domainerrors.Store(err, "could not load links")
	}
	return items, nil
}

// Mutate edits an item, then reloads the first page. The collection is not
// patched locally.
func (e *Engine) Mutate(ctx context.Context, itemID string, upd service.ItemUpdate) error {
	if _, err := e.editor.Update(ctx, itemID, upd); err != nil {
		e.fail(err)
		return err
	}
	return e.LoadInitial(ctx)
}

// Remove deletes an item, then reloads the first page.
func (e *Engine) Remove(ctx context.Context, itemID string) error {
	if err := e.editor.Delete(ctx, itemID); err != nil {
		e.fail(err)
		return err
	}
	return e.LoadInitial(ctx)
}

// fail records err without touching the collection.
func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	e.notify()
}
