package publisher

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// newClient builds the client used for publish POSTs. Never retried: a
// publish is not idempotent.
func newClient() *resty.Client {
	return resty.New().SetTimeout(30 * time.Second)
}

// newPreflightClient builds the client used for idempotent discovery GETs
// (blog ids, member listings, whoami). These get a small retry budget.
func newPreflightClient() *resty.Client {
	return resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
}

// ensureScheme prefixes https:// when the destination was stored as a bare
// domain.
func ensureScheme(siteURL string) string {
	if strings.HasPrefix(siteURL, "http://") || strings.HasPrefix(siteURL, "https://") {
		return strings.TrimSuffix(siteURL, "/")
	}
	return "https://" + strings.TrimSuffix(siteURL, "/")
}

// hostOnly strips scheme and path, leaving the bare host used as a site
// identifier by hosted APIs.
func hostOnly(siteURL string) string {
	s := strings.TrimPrefix(siteURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	return s
}
