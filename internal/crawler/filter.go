package crawler

import (
	"sort"
	"strings"

	"github.com/nao1215/sitesnap/internal/canon"
)

// skippedSchemes are reference prefixes that never lead to a page.
var skippedSchemes = []string{"mailto:", "tel:", "javascript:", "data:"}

// FilterLinks turns raw references found on pageURL into the sorted,
// deduplicated set of canonical URLs on origin. References with a
// non-navigable scheme, fragment-only references, unresolvable references
// and cross-origin references are dropped.
func FilterLinks(refs []string, pageURL, origin string) []string {
	set := make(map[string]struct{}, len(refs))

	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "#") || hasSkippedScheme(ref) {
			continue
		}

		resolved, err := canon.Resolve(ref, pageURL)
		if err != nil {
			continue
		}
		key, err := canon.Canonicalize(resolved.String(), "")
		if err != nil {
			continue
		}
		if o, err := canon.Origin(key); err != nil || o != origin {
			continue
		}
		set[key] = struct{}{}
	}

	links := make([]string, 0, len(set))
	for key := range set {
		links = append(links, key)
	}
	sort.Strings(links)
	return links
}

func hasSkippedScheme(ref string) bool {
	lower := strings.ToLower(ref)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
