package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashString creates a SHA256 hex digest of a string.
// This is useful for creating consistent, safe keys for maps and Redis.
func HashString(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// SplitLocators splits a comma separated list of URLs, dropping blanks and
// stripping a single trailing slash from each entry.
func SplitLocators(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, strings.TrimSuffix(part, "/"))
	}
	return out
}

// LastPathSegment returns the final non-empty path element of a URL.
func LastPathSegment(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	return segments[len(segments)-1]
}

// BaseURL returns scheme://host of u.
func BaseURL(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}
