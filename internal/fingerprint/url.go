// Package fingerprint maintains the lookup structures that answer
// "does an existing canonical job already represent this posting":
// exact URL hashes, composite keys, and MinHash/LSH content signatures.
package fingerprint

import (
	"crypto/sha256"
	"net/url"
	"sort"
	"strings"
)

// Always-stripped tracking parameters, merged with the configured
// extras at call sites.
var trackingQueryKeys = map[string]struct{}{
	"utm":      {},
	"fbclid":   {},
	"gclid":    {},
	"msclkid":  {},
	"mc_cid":   {},
	"mc_eid":   {},
	"ref":      {},
	"ref_src":  {},
	"referrer": {},
	"source":   {},
}

// CanonicalizeURL lower-cases scheme/host, drops default ports and
// fragments, trims trailing slashes, removes tracking query parameters
// (any utm_* plus the built-in and configured sets) and sorts what
// remains so equivalent URLs hash identically.
func CanonicalizeURL(raw string, extraTrackingParams []string) (canonical string, host string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", ""
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", ""
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" {
		defaultPort := (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443")
		if !defaultPort {
			parsed.Host = parsed.Host + ":" + port
		}
	}

	parsed.Fragment = ""
	path := strings.TrimSpace(parsed.EscapedPath())
	if path == "" {
		path = "/"
	}
	path = strings.ReplaceAll(path, "//", "/")
	if strings.HasSuffix(path, "/") && path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	parsed.Path = path
	parsed.RawPath = ""

	extra := make(map[string]struct{}, len(extraTrackingParams))
	for _, param := range extraTrackingParams {
		param = strings.ToLower(strings.TrimSpace(param))
		if param != "" {
			extra[param] = struct{}{}
		}
	}

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
			continue
		}
		if _, ok := extra[lower]; ok {
			q.Del(key)
		}
	}
	if len(q) > 0 {
		keys := make([]string, 0, len(q))
		for key := range q {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		reordered := url.Values{}
		for _, key := range keys {
			values := q[key]
			sort.Strings(values)
			for _, value := range values {
				reordered.Add(key, value)
			}
		}
		parsed.RawQuery = reordered.Encode()
	} else {
		parsed.RawQuery = ""
	}

	return parsed.String(), parsed.Hostname()
}

// URLHash is the stable exact-layer key: SHA-256 of the canonical URL.
// Returns nil for uncanonicalizable input.
func URLHash(raw string, extraTrackingParams []string) []byte {
	canonical, _ := CanonicalizeURL(raw, extraTrackingParams)
	if canonical == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(canonical))
	return append([]byte(nil), sum[:]...)
}
