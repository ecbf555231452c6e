package oauth

import (
	"net/url"
	"strings"
)

// Callback holds the authorization-code-style query parameters extracted
// from a terminal redirect.
type Callback struct {
	Code             string
	State            string
	ErrorCode        string
	ErrorDescription string
}

// ParseCallback reads the standard query parameters from a redirect URL,
// whether it arrived on the custom scheme or a regular https landing.
func ParseCallback(u *url.URL) Callback {
	q := u.Query()
	return Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		ErrorCode:        q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// IsSchemeCallback reports whether u is the app's own custom-scheme
// callback, i.e. {scheme}://oauth/callback.
func IsSchemeCallback(u *url.URL, scheme string) bool {
	if scheme == "" || !strings.EqualFold(u.Scheme, scheme) {
		return false
	}
	return strings.EqualFold(u.Host, "oauth") && strings.TrimRight(u.Path, "/") == "/callback"
}

// IsSuccessLanding reports whether u is the designated success landing
// path on any host.
func IsSuccessLanding(u *url.URL, successPath string) bool {
	if successPath == "" {
		return false
	}
	return strings.TrimRight(u.Path, "/") == strings.TrimRight(successPath, "/")
}
