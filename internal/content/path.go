package content

import (
	"net/url"
	"strings"
)

const pageSegment = "memoriales"

// MemorialIDFromPath takes the slug from a /memoriales/{id}/... page path,
// falling back to the ?memorial= query parameter.
func MemorialIDFromPath(path string, query url.Values) (string, bool) {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	for i, p := range parts {
		if p == pageSegment && i+1 < len(parts) && validID(parts[i+1]) {
			return parts[i+1], true
		}
	}

	if id := strings.TrimSpace(query.Get("memorial")); validID(id) {
		return id, true
	}
	return "", false
}

// MemorialIDFromURL accepts a full page URL, as pasted into the admin CLI.
func MemorialIDFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return MemorialIDFromPath(u.Path, u.Query())
}
