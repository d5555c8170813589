package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/events"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/store/kv"
	"github.com/linkstash/linkstash/internal/store/sqlite"
)

// EventsManagerHandle wraps the change-event manager with its context for lifecycle management.
type EventsManagerHandle struct {
	*events.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *EventsManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideEventsManager provides the change-event manager.
func ProvideEventsManager(i do.Injector) (*EventsManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := events.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Debug("events manager started")

	return &EventsManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the configured store backend with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured backend and wires its writes to the events manager.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	eventsHandle := do.MustInvoke[*EventsManagerHandle](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendBadger:
		s, err = kv.Open(cfg.Store.Path, log.Logger)
	case config.BackendSQLite:
		s, err = sqlite.Open(cfg.Store.Path, log.Logger)
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	s.SetEmitter(eventsHandle.Manager)

	return &StoreHandle{Store: s}, nil
}
