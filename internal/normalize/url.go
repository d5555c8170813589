// Package normalize extracts and canonicalizes the URL of a capture.
//
// It is pure: no I/O, no clock, same input same output.
package normalize

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// urlPattern finds the first scheme-prefixed token in shared text.
// The token ends at whitespace, angle brackets or quotes.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s\v\p{Z}\x{FEFF}<>"']+`)

// defaultPorts are dropped from canonical URLs.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// Input is what a capture knows before normalization.
// URL wins over RawText when both are set.
type Input struct {
	URL       string
	RawText   string
	Title     string
	Notes     string
	SourceApp string
}

// Result is a normalized capture. Optional fields are trimmed and empty when blank.
type Result struct {
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	Title     string `json:"title,omitempty"`
	Notes     string `json:"notes,omitempty"`
	SourceApp string `json:"source_app,omitempty"`
}

// URL normalizes in. It returns false when no candidate URL exists or the
// candidate is not an absolute URL with both scheme and host.
func URL(in Input) (*Result, bool) {
	candidate := strings.TrimSpace(in.URL)
	if candidate == "" {
		candidate = urlPattern.FindString(in.RawText)
	}
	if candidate == "" {
		return nil, false
	}

	canonical, domain, ok := canonicalize(sanitize(candidate))
	if !ok {
		return nil, false
	}

	return &Result{
		URL:       canonical,
		Domain:    domain,
		Title:     strings.TrimSpace(in.Title),
		Notes:     strings.TrimSpace(in.Notes),
		SourceApp: strings.TrimSpace(in.SourceApp),
	}, true
}

// ExtractURL applies the raw-text extraction rule of URL to text and returns
// the canonical URL it finds.
func ExtractURL(text string) (string, bool) {
	res, ok := URL(Input{RawText: text})
	if !ok {
		return "", false
	}
	return res.URL, true
}

// IsValidURL reports whether s, as typed, is an absolute URL with scheme and host.
// No extraction or punctuation stripping is applied.
func IsValidURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, _, ok := canonicalize(s)
	return ok
}

// sanitize strips share artifacts: surrounding whitespace and any trailing
// run of closing brackets, quotes, commas and periods.
func sanitize(s string) string {
	return strings.TrimRightFunc(strings.TrimSpace(s), func(r rune) bool {
		switch r {
		case ')', ']', '>', ',', '.', '\'', '"':
			return true
		}
		return unicode.IsSpace(r)
	})
}

// canonicalize parses raw and returns its canonical serialization and domain.
func canonicalize(raw string) (canonical, domain string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", false
	}

	scheme := strings.ToLower(u.Scheme)
	host, ok := canonicalHost(u.Hostname())
	if !ok {
		return "", "", false
	}

	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}

	domain = host
	if strings.Contains(host, ":") {
		domain = "[" + host + "]"
	}

	u.Scheme = scheme
	u.Host = domain
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	}
	if u.Path == "" && u.RawPath == "" && (scheme == "http" || scheme == "https") {
		u.Path = "/"
	}

	return u.String(), domain, true
}

// canonicalHost lowercases host and converts internationalized names to ASCII.
func canonicalHost(host string) (string, bool) {
	if host == "" {
		return "", false
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(host), true
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil || ascii == "" {
			return "", false
		}
		host = ascii
	}
	return strings.ToLower(host), true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
