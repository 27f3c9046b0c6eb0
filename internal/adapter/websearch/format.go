package websearch

import (
	"fmt"
	"strings"
)

// BuildContext renders results as a compact context block for a model
// prompt. Entries are numbered and kept short; the block never exceeds a
// handful of results by construction of Search.
func BuildContext(query string, results []Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if snippet := strings.TrimSpace(r.Snippet); snippet != "" {
			fmt.Fprintf(&b, "   %s\n", truncateRunes(snippet, snippetMaxRunes))
		}
	}
	return b.String()
}
