package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name       string
		input      Input
		wantURL    string
		wantDomain string
	}{
		{
			name:       "raw text with trailing punctuation",
			input:      Input{RawText: "check this out (https://example.com/a)."},
			wantURL:    "https://example.com/a",
			wantDomain: "example.com",
		},
		{
			name:       "direct url wins over raw text",
			input:      Input{URL: " https://a.test/x ", RawText: "https://b.test/y"},
			wantURL:    "https://a.test/x",
			wantDomain: "a.test",
		},
		{
			name:       "empty path becomes slash",
			input:      Input{URL: "https://a.test"},
			wantURL:    "https://a.test/",
			wantDomain: "a.test",
		},
		{
			name:       "scheme and host lowercased",
			input:      Input{URL: "HTTPS://Example.COM/Path?Q=1#Frag"},
			wantURL:    "https://example.com/Path?Q=1#Frag",
			wantDomain: "example.com",
		},
		{
			name:       "default port dropped",
			input:      Input{URL: "http://a.test:80/x"},
			wantURL:    "http://a.test/x",
			wantDomain: "a.test",
		},
		{
			name:       "custom port kept, domain has no port",
			input:      Input{URL: "http://a.test:8080/x"},
			wantURL:    "http://a.test:8080/x",
			wantDomain: "a.test",
		},
		{
			name:       "internationalized host to punycode",
			input:      Input{URL: "https://bücher.example/"},
			wantURL:    "https://xn--bcher-kva.example/",
			wantDomain: "xn--bcher-kva.example",
		},
		{
			name:       "ipv6 host",
			input:      Input{URL: "http://[::1]:3000/"},
			wantURL:    "http://[::1]:3000/",
			wantDomain: "[::1]",
		},
		{
			name:       "first of several links",
			input:      Input{RawText: "see https://one.test/a and https://two.test/b"},
			wantURL:    "https://one.test/a",
			wantDomain: "one.test",
		},
		{
			name:       "quoted link in shared text",
			input:      Input{RawText: "Title line\n\"https://a.test/q?x=1\","},
			wantURL:    "https://a.test/q?x=1",
			wantDomain: "a.test",
		},
		{
			name:       "angle bracket bounded",
			input:      Input{RawText: "<https://a.test/p>"},
			wantURL:    "https://a.test/p",
			wantDomain: "a.test",
		},
		{
			name:       "uppercase scheme in raw text",
			input:      Input{RawText: "HTTP://A.TEST/X"},
			wantURL:    "http://a.test/X",
			wantDomain: "a.test",
		},
		{
			name:       "stacked trailing artifacts on direct url",
			input:      Input{URL: "https://a.test/x]>',\" "},
			wantURL:    "https://a.test/x",
			wantDomain: "a.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := URL(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantDomain, got.Domain)
		})
	}
}

func TestURL_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{"not a url", Input{URL: "not a url"}},
		{"no links in text", Input{RawText: "no links here"}},
		{"empty input", Input{}},
		{"whitespace url and no text", Input{URL: "   "}},
		{"relative path", Input{URL: "/a/b"}},
		{"scheme without host", Input{URL: "mailto:someone@example.com"}},
		{"bare domain", Input{URL: "example.com/a"}},
		{"bad host", Input{URL: "https://exa mple.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := URL(tt.input)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestURL_OptionalFields(t *testing.T) {
	got, ok := URL(Input{
		URL:       "https://a.test",
		Title:     "  A title ",
		Notes:     "   ",
		SourceApp: " com.example.reader\n",
	})
	require.True(t, ok)

	assert.Equal(t, "A title", got.Title)
	assert.Empty(t, got.Notes)
	assert.Equal(t, "com.example.reader", got.SourceApp)
}

func TestURL_Deterministic(t *testing.T) {
	in := Input{RawText: "read (https://Example.com/a?b=c)."}
	first, ok := URL(in)
	require.True(t, ok)

	for range 10 {
		again, ok := URL(in)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestExtractURL(t *testing.T) {
	got, ok := ExtractURL("Great read\nhttps://a.test/x)")
	require.True(t, ok)
	assert.Equal(t, "https://a.test/x", got)

	_, ok = ExtractURL("nothing to see")
	assert.False(t, ok)
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://a.test/x"))
	assert.True(t, IsValidURL(" ftp://files.test/a "))
	assert.False(t, IsValidURL(""))
	assert.False(t, IsValidURL("a.test"))
	assert.False(t, IsValidURL("check https://a.test"))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://a.test/x).", "https://a.test/x"},
		{"  https://a.test/x  ", "https://a.test/x"},
		{"https://a.test/(x)", "https://a.test/(x"},
		{"https://a.test/x?y=z", "https://a.test/x?y=z"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), tt.in)
	}
}
