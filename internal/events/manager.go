package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linkstash/linkstash/internal/id"
)

const (
	queueSize        = 1000
	subscriberBuffer = 100
)

// Subscription is a live handle on one owner's change events.
// Receive from C; call Close to unsubscribe. C is closed on Close or manager shutdown.
type Subscription struct {
	SubscribedAt time.Time
	C            <-chan Event
	ID           string
	UserID       string

	ch      chan Event
	manager *Manager
	once    sync.Once
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.manager.unsubscribe(s.ID) })
}

// Manager fans change events out to per-owner subscribers.
type Manager struct {
	subscribers map[string]*Subscription
	events      chan Event
	logger      *slog.Logger
	wg          sync.WaitGroup
	mu          sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new event Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		subscribers: make(map[string]*Subscription),
		events:      make(chan Event, queueSize),
		logger:      logger,
	}
}

// Start runs the broadcast loop until ctx is done or the manager shuts down.
// Call once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Debug("event manager starting")

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.broadcast(event)

		case <-ctx.Done():
			m.logger.Debug("event manager stopping")
			m.closeAll()
			return
		}
	}
}

// Shutdown stops accepting events, drains the queue and closes every subscription.
func (m *Manager) Shutdown(ctx context.Context) error {
	// Mark as shutdown and close the queue under the write lock so Emit,
	// which sends under the read lock, never hits a closed channel.
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range m.events {
			m.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("event drain timeout, some events may be lost")
	}

	m.wg.Wait()
	m.closeAll()

	m.logger.Debug("event manager shutdown complete")
	return nil
}

// broadcast delivers event to the subscribers of its owner.
func (m *Manager) broadcast(event Event) {
	var delivered, dropped, filtered int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		if event.UserID != sub.UserID {
			filtered++
			continue
		}

		// Non-blocking send; a stuck subscriber loses events, not the loop.
		select {
		case sub.ch <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow subscriber",
				slog.String("subscription_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	m.logger.Debug("event broadcast",
		slog.String("event_type", string(event.Type)),
		slog.String("record_id", event.RecordID),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("filtered", filtered),
			slog.Int("dropped", dropped)))
}

// Subscribe registers a subscriber for userID's events.
func (m *Manager) Subscribe(userID string) (*Subscription, error) {
	subID, err := id.Generate(id.PrefixSubscription)
	if err != nil {
		return nil, err
	}

	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{
		ID:           subID,
		UserID:       userID,
		C:            ch,
		SubscribedAt: time.Now(),
		ch:           ch,
		manager:      m,
	}

	m.shutdownMu.RLock()
	closed := m.shutdown
	m.shutdownMu.RUnlock()
	if closed {
		close(ch)
		return sub, nil
	}

	m.mu.Lock()
	m.subscribers[sub.ID] = sub
	total := len(m.subscribers)
	m.mu.Unlock()

	m.logger.Debug("subscriber added",
		slog.String("subscription_id", subID),
		slog.String("user_id", userID),
		slog.Int("total_subscribers", total))
	return sub, nil
}

func (m *Manager) unsubscribe(subID string) {
	m.mu.Lock()
	sub, ok := m.subscribers[subID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.subscribers, subID)
	total := len(m.subscribers)
	m.mu.Unlock()

	close(sub.ch)

	m.logger.Debug("subscriber removed",
		slog.String("subscription_id", subID),
		slog.Duration("duration", time.Since(sub.SubscribedAt)),
		slog.Int("total_subscribers", total))
}

// Emit queues an event for broadcast. It implements store.EventEmitter.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("invalid event type emitted")
		return
	}

	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- evt:
	default:
		m.logger.Error("event queue full, dropping event",
			slog.String("event_type", string(evt.Type)))
	}
}

// SubscriberCount returns the number of live subscriptions.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscribers {
		close(sub.ch)
	}
	m.subscribers = make(map[string]*Subscription)
}
