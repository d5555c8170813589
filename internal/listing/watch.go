package listing

import (
	"context"
	"errors"

	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/session"
)

// ErrClosed is returned by Start on a closed engine.
var ErrClosed = errors.New("listing engine closed")

// Start subscribes to the owner's item changes and to session changes.
// Each change to saved items reloads the first page; a session change moves
// the subscription to the new owner and reloads. Start does not load by itself.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.cancel != nil {
		e.mu.Unlock()
		return nil
	}
	e.runCtx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	unsubscribe := e.session.Subscribe(func(s session.Session, ok bool) {
		e.sessionChanged(s, ok)
	})

	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()

	e.watch(e.session.UserID())
	return nil
}

// sessionChanged runs on the session's notifying goroutine; the reload is
// handed to a worker so sign-in does not wait on the query.
func (e *Engine) sessionChanged(s session.Session, ok bool) {
	ownerID := ""
	if ok {
		ownerID = s.UserID
	}
	e.watch(ownerID)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	ctx := e.runCtx
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		if err := e.LoadInitial(ctx); err != nil {
			e.logger.Warn("reload after session change failed", "error", err)
		}
	}()
}

// watch replaces the change subscription with one for ownerID.
// An empty ownerID only drops the old subscription.
func (e *Engine) watch(ownerID string) {
	e.mu.Lock()
	old := e.sub
	e.sub = nil
	closed := e.closed
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if closed || ownerID == "" {
		return
	}

	sub, err := e.notifier.Subscribe(ownerID)
	if err != nil {
		e.logger.Warn("could not subscribe to item changes", "user_id", ownerID, "error", err)
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		sub.Close()
		return
	}
	e.sub = sub
	ctx := e.runCtx
	e.wg.Add(1)
	e.mu.Unlock()

	go e.listen(ctx, sub)
}

// listen reloads on every change that alters listed items or their tags
// until the subscription ends. Bursts are coalesced into one reload.
func (e *Engine) listen(ctx context.Context, sub *events.Subscription) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if !affectsListing(evt) {
				continue
			}
			if !drain(sub.C) {
				return
			}

			e.logger.Debug("items changed, reloading", "event", evt.Type, "item_id", evt.RecordID)
			if err := e.LoadInitial(ctx); err != nil {
				e.logger.Warn("reload after change failed", "error", err)
			}
		}
	}
}

// affectsListing reports whether evt can change a listed item. Listed items
// carry their tags, so link changes and tag deletions count; a new tag has
// no items yet.
func affectsListing(evt events.Event) bool {
	switch evt.Table {
	case events.TableSavedItems, events.TableItemTagLinks:
		return true
	case events.TableTags:
		return evt.Kind == events.KindDelete
	default:
		return false
	}
}

// drain discards queued events. It reports false when c was closed.
func drain(c <-chan events.Event) bool {
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

// Close ends the listing session: it releases the session listener and the
// change subscription and waits for in-flight reloads. Safe to call twice.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	cancel := e.cancel
	unsubscribe := e.unsubscribe
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}
