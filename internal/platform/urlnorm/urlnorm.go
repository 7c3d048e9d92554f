// Package urlnorm implements the platform/URL canonicalization rules from
// the ingest contract: lowercase platform names, strip tracking params,
// keep only the whitelisted query keys.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"
)

var queryWhitelist = map[string]bool{
	"v":    true,
	"id":   true,
	"list": true,
}

// Platform lowercases and trims a platform name.
func Platform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// CanonicalURL strips tracking params (utm_*, fbclid, ref) and reduces the
// URL to scheme://host/path plus any whitelisted query keys (v, id, list).
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	kept := url.Values{}
	for key, vals := range u.Query() {
		if isTracking(key) {
			continue
		}
		if !queryWhitelist[strings.ToLower(key)] {
			continue
		}
		kept[key] = vals
	}
	u.RawQuery = encodeSorted(kept)
	return u.String(), nil
}

func isTracking(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	switch lower {
	case "fbclid", "ref":
		return true
	default:
		return false
	}
}

// encodeSorted renders query values with deterministic key ordering so the
// same logical URL always canonicalizes to the same string.
func encodeSorted(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		for j, val := range v[k] {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}
