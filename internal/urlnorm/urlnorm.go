// Package urlnorm provides the canonicalization and origin comparison
// rules shared by the crawler, store, and index.
package urlnorm

import "net/url"

// Canonicalize strips the query and fragment components of rawURL so
// that the same logical page is never tracked under two different
// visited-set or document-code entries.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// SameOrigin reports whether a and b share the same scheme, host, and
// port. Both must be syntactically valid URLs; an invalid URL is never
// same-origin with anything.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host
}
