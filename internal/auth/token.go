// Package auth implements API token extraction and constant-time
// validation shared by the HTTP middleware.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ExtractToken retrieves the API token from the request, in priority order:
// 1. Authorization: Bearer <token>
// 2. Header: X-API-Token
// 3. Query: ?token= (only when allowQuery is set; tokens in URLs end up
// in proxy logs, so the API keeps this off)
func ExtractToken(r *http.Request, allowQuery bool) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}

	if t := r.Header.Get("X-API-Token"); t != "" {
		return t
	}

	if allowQuery {
		if t := r.URL.Query().Get("token"); t != "" {
			return t
		}
	}

	return ""
}

// AuthorizeToken returns true if got matches expected using constant-time
// comparison. Empty tokens are always treated as unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// AuthorizeRequest extracts a token from r and validates it against expectedToken.
func AuthorizeRequest(r *http.Request, expectedToken string, allowQuery bool) bool {
	if r == nil {
		return false
	}
	return AuthorizeToken(ExtractToken(r, allowQuery), expectedToken)
}
