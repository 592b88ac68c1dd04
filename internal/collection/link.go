package collection

import (
	"net/url"
	"strings"
)

// IsLink reports whether content is a syntactically valid absolute
// http(s) URL after trimming surrounding whitespace. Anything else is
// treated as plain text.
func IsLink(content string) bool {
	s := strings.TrimSpace(content)
	if s == "" {
		return false
	}
	// Embedded whitespace disqualifies it even if the prefix parses.
	if strings.ContainsAny(s, " \t\n\"") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
