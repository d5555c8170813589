package share

import (
	"strings"
	"unicode/utf8"
)

// maxTitleRunes caps titles derived from shared text.
const maxTitleRunes = 140

// sourceAppKeys are the extra-data keys that may name the sending app, in priority order.
var sourceAppKeys = []string{
	"sourceApp",
	"source_application",
	"sourceApplication",
	"appPackageName",
	"packageName",
	"android.intent.extra.PROCESS_NAME",
	"UIApplicationBundleIdentifierKey",
	"hostAppId",
	"appName",
}

// DeriveTitle returns the first non-empty line of text that is not itself a
// link, truncated to 140 runes. It returns "" when there is none.
func DeriveTitle(text string) string {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" || isLinkLine(line) {
			continue
		}
		return truncateRunes(line, maxTitleRunes)
	}
	return ""
}

func isLinkLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

// DetectSourceApp returns the sending app named in extra, if any.
func DetectSourceApp(extra map[string]any) string {
	for _, key := range sourceAppKeys {
		if s, ok := extra[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// Draft prefills the manual add form after a share could not be saved.
type Draft struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Notes     string `json:"notes,omitempty"`
	SourceApp string `json:"source_app,omitempty"`
}

// ManualDraft builds the add-form prefill for p.
func ManualDraft(p PendingShare) Draft {
	title, _ := p.ExtraData["title"].(string)
	return Draft{
		URL:       p.URL,
		Title:     strings.TrimSpace(title),
		Notes:     p.RawText,
		SourceApp: DetectSourceApp(p.ExtraData),
	}
}
