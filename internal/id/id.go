// Package id generates request correlation identifiers.
package id

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header is the request and response header carrying the correlation ID.
const Header = "X-Request-Id"

// New returns a random UUID v4 string.
func New() string {
	return uuid.NewString()
}

// Short returns the first group of a UUID, for compact log lines.
// Non-UUID input is returned unchanged.
func Short(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		return id
	}
	head, _, _ := strings.Cut(id, "-")
	return head
}

// FromRequest returns the client-supplied correlation ID when it is a valid
// UUID, and a fresh one otherwise.
func FromRequest(r *http.Request) string {
	if v := r.Header.Get(Header); v != "" {
		if u, err := uuid.Parse(v); err == nil {
			return u.String()
		}
	}
	return New()
}
