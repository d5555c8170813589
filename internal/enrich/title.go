// Package enrich fills in details of saved links after capture.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/ratelimit"
)

const (
	// One fetch per second per host, burst of 2. Idle hosts are forgotten after 10 minutes.
	defaultRPS     = 1.0
	defaultBurst   = 2
	limiterIdleTTL = 10 * time.Minute

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
	maxTitleRunes  = 1000

	userAgent = "linkstash/1.0 (+title fetch)"
)

// Sentinel errors for title fetching.
var (
	ErrUnexpectedStatus = errors.New("enrich: unexpected status")
	ErrNotHTML          = errors.New("enrich: response is not html")
)

// ItemUpdater writes the fetched title back. store.ItemStore implements it.
type ItemUpdater interface {
	UpdateItem(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (*domain.SavedItem, error)
}

// TitleEnricher fetches the page of an untitled item and stores its title.
type TitleEnricher struct {
	http    *http.Client
	store   ItemUpdater
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// NewTitleEnricher creates an enricher. A zero timeout uses 10s.
func NewTitleEnricher(store ItemUpdater, timeout time.Duration, logger *slog.Logger) *TitleEnricher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TitleEnricher{
		http:    &http.Client{Timeout: timeout},
		store:   store,
		limiter: ratelimit.New(defaultRPS, defaultBurst, limiterIdleTTL),
		logger:  logger,
	}
}

// Close releases the per-host limiter.
func (e *TitleEnricher) Close() {
	e.limiter.Stop()
}

// Enrich sets item.Title from the page when the item has none.
// Items that already have a title are left alone.
func (e *TitleEnricher) Enrich(ctx context.Context, item *domain.SavedItem) error {
	if item.Title != "" {
		return nil
	}

	title, err := e.FetchTitle(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("fetch title for %s: %w", item.ID, err)
	}
	if title == "" {
		e.logger.Debug("page has no title", "item_id", item.ID, "domain", item.Domain)
		return nil
	}

	updated, err := e.store.UpdateItem(ctx, item.UserID, item.ID, domain.ItemPatch{Title: &title})
	if err != nil {
		return fmt.Errorf("store title for %s: %w", item.ID, err)
	}

	item.Title = updated.Title
	item.UpdatedAt = updated.UpdatedAt

	e.logger.Info("title fetched", "item_id", item.ID, "domain", item.Domain)
	return nil
}

// FetchTitle returns the page's og:title, falling back to <title>.
// Whitespace is collapsed and the result is capped at 1000 runes.
func (e *TitleEnricher) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	if err := e.limiter.Wait(ctx, u.Hostname()); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return "", ErrNotHTML
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	return pageTitle(doc), nil
}

func pageTitle(doc *goquery.Document) string {
	candidates := []string{
		doc.Find(`meta[property="og:title"]`).AttrOr("content", ""),
		doc.Find("title").First().Text(),
	}
	for _, c := range candidates {
		if title := cleanTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxTitleRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxTitleRunes]))
	}
	return s
}

// isHTML reports whether a Content-Type header names an HTML document.
// A missing header is treated as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
