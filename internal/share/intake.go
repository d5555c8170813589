package share

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/normalize"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/session"
)

// Notice texts shown for shares that cannot be saved.
const (
	msgUnsupported = "this share could not be saved: no link found"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("share intake closed")

// State is the intake's position in the save flow.
type State int

const (
	StateIdle State = iota
	StatePendingDecision
	StateSaving
)

func (s State) String() string {
	switch s {
	case StatePendingDecision:
		return "pending_decision"
	case StateSaving:
		return "saving"
	default:
		return "idle"
	}
}

// UI is the view layer the intake drives. Methods may be called from any goroutine.
type UI interface {
	Notice(msg string)
	OpenSignIn()
	Saved(item *domain.SavedItem)
	Error(err error)
	OpenManualEntry(draft Draft)
}

// Capturer saves links. *service.CaptureService implements it.
type Capturer interface {
	CaptureAndSave(ctx context.Context, req service.CaptureRequest) (*domain.SavedItem, error)
}

// Options configures an Intake.
type Options struct {
	Logger *slog.Logger
}

// Intake stages shared links and saves them once a session exists.
// Only one save runs at a time; a share arriving mid-save replaces the
// pending share and is saved after.
type Intake struct {
	capture Capturer
	session *session.Context
	ui      UI
	logger  *slog.Logger

	mu      sync.Mutex
	pending *PendingShare
	seq     uint64 // bumped per staged share
	saving  bool
	ready   bool

	// Per-share bookkeeping, keyed by seq.
	signInShownFor uint64
	failedSeq      uint64

	// Lifecycle, set by Start.
	ctx         context.Context
	cancel      context.CancelFunc
	sub         Subscription
	unsubscribe func()
	closed      bool
	wg          sync.WaitGroup
}

// NewIntake creates an idle intake. It is ready to save immediately; see SetReady.
func NewIntake(capture Capturer, sess *session.Context, ui UI, opts Options) *Intake {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Intake{
		capture: capture,
		session: sess,
		ui:      ui,
		logger:  logger,
		ready:   true,
	}
}

// SetReady gates saving, e.g. until the view layer can navigate.
// Turning it on drives any pending share.
func (in *Intake) SetReady(ctx context.Context, ready bool) {
	in.mu.Lock()
	in.ready = ready
	in.mu.Unlock()

	if ready {
		in.drive(ctx)
	}
}

// State returns the current state. A share kept after a failed save does
// not count as pending.
func (in *Intake) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()

	switch {
	case in.saving:
		return StateSaving
	case in.pending != nil && in.failedSeq != in.seq:
		return StatePendingDecision
	default:
		return StateIdle
	}
}

// Pending returns a copy of the staged share, if any.
func (in *Intake) Pending() (PendingShare, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.pending == nil {
		return PendingShare{}, false
	}
	return *in.pending, true
}

// Abandon drops the staged share.
func (in *Intake) Abandon() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending = nil
}

// Receive handles one share event. Payloads with an unknown shape or no
// link return UNSUPPORTED_SHARE after notifying the UI; a payload without a
// link also drops any staged share.
func (in *Intake) Receive(ctx context.Context, p Payload) error {
	text, ok := Narrow(p.Data)
	if !ok {
		in.logger.Info("unsupported share payload", "kind", p.Data.Kind().String())
		in.ui.Notice(msgUnsupported)
		return domainerrors.UnsupportedShare("share payload has an unsupported shape")
	}

	url, ok := normalize.ExtractURL(text)
	if !ok {
		in.mu.Lock()
		in.pending = nil
		in.mu.Unlock()

		in.logger.Info("share without link discarded")
		in.ui.Notice(msgUnsupported)
		return domainerrors.UnsupportedShare("shared text contains no link")
	}

	in.mu.Lock()
	in.seq++
	in.pending = &PendingShare{
		URL:        url,
		RawText:    text,
		MimeType:   p.MimeType,
		ExtraData:  p.ExtraData,
		ReceivedAt: time.Now().UTC(),
	}
	in.mu.Unlock()

	in.logger.Debug("share staged", "url", url)
	in.drive(ctx)
	return nil
}

// drive saves the staged share if it can, then any share that replaced it
// during the save.
func (in *Intake) drive(ctx context.Context) {
	for {
		in.mu.Lock()
		if in.closed || in.saving || !in.ready || in.pending == nil || in.failedSeq == in.seq {
			in.mu.Unlock()
			return
		}

		seq := in.seq
		if _, ok := in.session.Current(); !ok {
			show := in.signInShownFor != seq
			in.signInShownFor = seq
			in.mu.Unlock()

			if show {
				in.ui.OpenSignIn()
			}
			return
		}

		pending := *in.pending
		in.saving = true
		in.mu.Unlock()

		item, err := in.capture.CaptureAndSave(ctx, captureRequest(pending))

		in.mu.Lock()
		in.saving = false
		current := in.seq == seq
		authLost := err != nil && domainerrors.CodeOf(err) == domainerrors.CodeUnauthenticated
		switch {
		case !current:
		case err == nil || item != nil:
			in.pending = nil
		case authLost:
			in.signInShownFor = seq
		default:
			in.failedSeq = seq
		}
		in.mu.Unlock()

		switch {
		case item != nil:
			// Saved, possibly without its tags.
			in.ui.Saved(item)
			if err != nil {
				in.ui.Error(err)
			}
		case authLost:
			in.ui.OpenSignIn()
			return
		default:
			in.logger.Warn("share save failed", "url", pending.URL, "error", err)
			in.ui.Error(err)
			in.ui.OpenManualEntry(ManualDraft(pending))
		}
	}
}

func captureRequest(p PendingShare) service.CaptureRequest {
	return service.CaptureRequest{
		URL:       p.URL,
		Text:      p.RawText,
		Title:     DeriveTitle(p.RawText),
		SourceApp: DetectSourceApp(p.ExtraData),
	}
}

// Start consumes src: its initial share first, then live shares. Session
// changes re-drive the staged share. Receive errors are logged and the
// listener stays subscribed.
func (in *Intake) Start(ctx context.Context, src Source) error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return ErrClosed
	}
	in.ctx, in.cancel = context.WithCancel(ctx)
	in.mu.Unlock()

	unsubscribe := in.session.Subscribe(func(_ session.Session, ok bool) {
		if !ok {
			return
		}
		in.wg.Go(func() { in.drive(in.ctx) })
	})
	in.mu.Lock()
	in.unsubscribe = unsubscribe
	in.mu.Unlock()

	if p, ok, err := src.InitialShare(); err != nil {
		in.logger.Warn("read initial share failed", "error", err)
	} else if ok {
		in.receive(p)
	}

	sub, err := src.Subscribe(in.receive)
	if err != nil {
		return err
	}

	in.mu.Lock()
	in.sub = sub
	in.mu.Unlock()
	return nil
}

func (in *Intake) receive(p Payload) {
	if err := in.Receive(in.ctx, p); err != nil {
		in.logger.Debug("share rejected", "error", err)
	}
}

// Close cancels in-flight saves, releases the source and session
// subscriptions, and waits for saves started by session changes. Safe to call
// more than once.
func (in *Intake) Close() error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil
	}
	in.closed = true
	sub, unsubscribe, cancel := in.sub, in.unsubscribe, in.cancel
	in.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	// Cancel first: a source may wait for its in-flight callback on Close.
	if cancel != nil {
		cancel()
	}

	var err error
	if sub != nil {
		err = sub.Close()
	}
	in.wg.Wait()
	return err
}
