package policy

import (
	"net/url"
	"strings"
)

// Route prefixes that carry a wiki path in their tail.
var wikiPrefixes = []string{
	"/api/wiki/", "/api/history/", "/api/diff/", "/api/revert/",
	"/wiki/", "/history/", "/diff/", "/revert/",
}

// WikiPathForRequest extracts the wiki path a request targets so the
// resolver can be consulted. Run requests name their page in the suite or
// test query parameter. Paths with no wiki tail resolve to "".
func WikiPathForRequest(urlPath string, query url.Values) string {
	if urlPath == "/run" || urlPath == "/api/run" {
		if suite := query.Get("suite"); suite != "" {
			return strings.Trim(suite, "/")
		}
		return strings.Trim(query.Get("test"), "/")
	}
	for _, prefix := range wikiPrefixes {
		if strings.HasPrefix(urlPath, prefix) {
			return strings.Trim(strings.TrimPrefix(urlPath, prefix), "/")
		}
	}
	return ""
}
