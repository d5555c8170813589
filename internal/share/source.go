package share

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Subscription is a live share feed. Close stops delivery.
type Subscription interface {
	Close() error
}

// Source delivers share events: the one that launched the process, then
// any that arrive while it runs.
type Source interface {
	InitialShare() (Payload, bool, error)
	Subscribe(fn func(Payload)) (Subscription, error)
}

// DefaultSettleDelay is how long an inbox file must stay unchanged before it is read.
const DefaultSettleDelay = 100 * time.Millisecond

// DecodePayload reads one JSON payload.
func DecodePayload(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decode share payload: %w", err)
	}
	return p, nil
}

// DirSource is a share inbox: every *.json file dropped into dir is one payload.
// Files are removed once read.
type DirSource struct {
	dir         string
	settleDelay time.Duration
	logger      *slog.Logger
}

var _ Source = (*DirSource)(nil)

// NewDirSource creates a source over dir. A zero settleDelay uses DefaultSettleDelay.
func NewDirSource(dir string, settleDelay time.Duration, logger *slog.Logger) *DirSource {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DirSource{
		dir:         filepath.Clean(dir),
		settleDelay: settleDelay,
		logger:      logger,
	}
}

// InitialShare returns the newest payload already in the inbox. Older files
// are superseded and removed.
func (s *DirSource) InitialShare() (Payload, bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Payload{}, false, fmt.Errorf("read share inbox: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var files []candidate
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if e.IsDir() || !isInboxFile(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{path: path, modTime: info.ModTime()})
	}
	if len(files) == 0 {
		return Payload{}, false, nil
	}

	slices.SortFunc(files, func(a, b candidate) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})

	newest := files[len(files)-1]
	for _, f := range files[:len(files)-1] {
		s.logger.Debug("superseded share discarded", "path", f.path)
		s.remove(f.path)
	}

	return s.consume(newest.path), true, nil
}

// Subscribe watches the inbox and calls fn for each settled file.
// Calls to fn are serialized.
func (s *DirSource) Subscribe(fn func(Payload)) (Subscription, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch share inbox: %w", err)
	}

	sub := &dirSubscription{
		source:  s,
		fn:      fn,
		watcher: watcher,
		pending: make(map[string]*pendingFile),
		done:    make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.processEvents()

	s.logger.Info("watching share inbox", "dir", s.dir)
	return sub, nil
}

// Drop writes p into the inbox as a new share file and returns its path.
// The file appears under its final name only once fully written.
func (s *DirSource) Drop(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode share payload: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".share-*.json")
	if err != nil {
		return "", fmt.Errorf("create share file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write share file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close share file: %w", err)
	}

	final := filepath.Join(s.dir, fmt.Sprintf("share-%d.json", time.Now().UnixNano()))
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("publish share file: %w", err)
	}
	return final, nil
}

// consume reads and removes path. A file that does not decode becomes an
// Unsupported payload so the intake can report it.
func (s *DirSource) consume(path string) Payload {
	defer s.remove(path)

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("failed to open share file", "path", path, "error", err)
		return Payload{Data: Unsupported()}
	}
	defer f.Close()

	p, err := DecodePayload(f)
	if err != nil {
		s.logger.Warn("malformed share file", "path", path, "error", err)
		return Payload{Data: Unsupported()}
	}
	return p
}

func (s *DirSource) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove share file", "path", path, "error", err)
	}
}

// isInboxFile reports whether path is a visible *.json file.
func isInboxFile(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".json")
}

// dirSubscription debounces inbox writes until each file settles.
type dirSubscription struct {
	source  *DirSource
	fn      func(Payload)
	watcher *fsnotify.Watcher

	pending map[string]*pendingFile
	mu      sync.Mutex // protects pending and closed
	closed  bool

	deliverMu sync.Mutex // serializes fn
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// pendingFile tracks a file that may still be written to.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

func (d *dirSubscription) processEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handle(event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.source.logger.Warn("share inbox watch error", "error", err)
		}
	}
}

func (d *dirSubscription) handle(event fsnotify.Event) {
	if !isInboxFile(event.Name) {
		return
	}

	switch {
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		d.cancel(event.Name)
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		d.startSettling(event.Name)
	}
}

func (d *dirSubscription) startSettling(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		delete(d.pending, path)
		return
	}

	d.pending[path] = &pendingFile{
		size:    info.Size(),
		modTime: info.ModTime(),
		timer: time.AfterFunc(d.source.settleDelay, func() {
			d.checkSettled(path)
		}),
	}
}

func (d *dirSubscription) checkSettled(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || d.closed {
		d.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(d.pending, path)
		d.mu.Unlock()
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		// Still being written.
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(d.source.settleDelay, func() {
			d.checkSettled(path)
		})
		d.mu.Unlock()
		return
	}

	delete(d.pending, path)
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	payload := d.source.consume(path)
	d.fn(payload)
}

func (d *dirSubscription) cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

// Close stops watching and waits for any delivery in progress.
func (d *dirSubscription) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, p := range d.pending {
			p.timer.Stop()
		}
		clear(d.pending)
		d.mu.Unlock()

		close(d.done)
		err = d.watcher.Close()
		d.wg.Wait()
	})
	return err
}
