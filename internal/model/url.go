package model

import "net/url"

// IsAbsoluteURL reports whether raw parses as a URL with both a scheme and a
// network location. Relative references and opaque URLs such as
// "mailto:a@b.com" are rejected.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
