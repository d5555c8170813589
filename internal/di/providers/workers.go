package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/listing"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/share"
)

// ListingHandle wraps the listing engine with shutdown capability.
// The engine is not started; call Start to follow change events.
type ListingHandle struct {
	*listing.Engine
}

// Shutdown implements do.Shutdownable.
func (h *ListingHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideListingEngine provides the listing engine. Callers may register a
// listing.Options value first to receive snapshots.
func ProvideListingEngine(i do.Injector) (*ListingHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	items := do.MustInvoke[*service.ItemService](i)
	sess := do.MustInvoke[*session.Context](i)
	eventsHandle := do.MustInvoke[*EventsManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts, err := do.Invoke[listing.Options](i)
	if err != nil {
		opts = listing.Options{}
	}
	if opts.Logger == nil {
		opts.Logger = log.WithComponent("listing").Logger
	}

	engine := listing.New(storeHandle.Store, items, sess, eventsHandle.Manager, opts)
	return &ListingHandle{Engine: engine}, nil
}

// ProvideShareSource provides the share inbox, creating its directory if needed.
func ProvideShareSource(i do.Injector) (*share.DirSource, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Share.InboxPath, 0o750); err != nil {
		return nil, fmt.Errorf("create share inbox: %w", err)
	}

	return share.NewDirSource(cfg.Share.InboxPath, cfg.Share.SettleDelay, log.WithComponent("inbox").Logger), nil
}

// ShareIntakeHandle wraps the share intake with shutdown capability.
type ShareIntakeHandle struct {
	*share.Intake
}

// Shutdown implements do.Shutdownable.
func (h *ShareIntakeHandle) Shutdown() error {
	return h.Close()
}

// ProvideShareIntake provides the share intake. Callers must register the
// share.UI it reports to.
func ProvideShareIntake(i do.Injector) (*ShareIntakeHandle, error) {
	capture := do.MustInvoke[*service.CaptureService](i)
	sess := do.MustInvoke[*session.Context](i)
	log := do.MustInvoke[*logger.Logger](i)

	ui, err := do.Invoke[share.UI](i)
	if err != nil {
		return nil, fmt.Errorf("share intake needs a share.UI: %w", err)
	}

	intake := share.NewIntake(capture, sess, ui, share.Options{Logger: log.WithComponent("share").Logger})
	return &ShareIntakeHandle{Intake: intake}, nil
}
