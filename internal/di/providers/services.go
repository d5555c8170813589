package providers

import (
	"github.com/samber/do/v2"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/enrich"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSession provides the process session, signed in as the configured
// user when one is set.
func ProvideSession(i do.Injector) (*session.Context, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	sess := session.NewContext()
	if cfg.Session.UserID != "" {
		sess.Set(session.Session{UserID: cfg.Session.UserID})
		log.Debug("session restored", "user_id", cfg.Session.UserID)
	}
	return sess, nil
}

// EnricherHandle wraps the post-save enricher with shutdown capability.
// Enricher is a no-op unless enrichment is enabled.
type EnricherHandle struct {
	service.Enricher
	close func()
}

// Shutdown implements do.Shutdownable.
func (h *EnricherHandle) Shutdown() error {
	if h.close != nil {
		h.close()
	}
	return nil
}

// ProvideEnricher provides the title enricher when enabled in config.
func ProvideEnricher(i do.Injector) (*EnricherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Enrich.Enabled {
		return &EnricherHandle{Enricher: service.NoopEnricher{}}, nil
	}

	e := enrich.NewTitleEnricher(storeHandle.Store, cfg.Enrich.Timeout, log.WithComponent("enrich").Logger)
	log.Debug("title enrichment enabled", "timeout", cfg.Enrich.Timeout)

	return &EnricherHandle{Enricher: e, close: e.Close}, nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Logger), nil
}

// ProvideCaptureService provides the capture pipeline.
func ProvideCaptureService(i do.Injector) (*service.CaptureService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tags := do.MustInvoke[*service.TagService](i)
	sess := do.MustInvoke[*session.Context](i)
	v := do.MustInvoke[*validation.Validator](i)
	enricher := do.MustInvoke[*EnricherHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewCaptureService(storeHandle.Store, tags, sess, v, log.Logger)
	svc.SetEnricher(enricher.Enricher)
	return svc, nil
}

// ProvideItemService provides the item service.
func ProvideItemService(i do.Injector) (*service.ItemService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tags := do.MustInvoke[*service.TagService](i)
	sess := do.MustInvoke[*session.Context](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewItemService(storeHandle.Store, tags, sess, v, log.Logger), nil
}
