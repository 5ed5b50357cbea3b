// Package keycodec turns record names into opaque, URL-safe tokens and back.
package keycodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidToken is returned when a token is not valid unpadded URL-safe
// base64 or does not decode to UTF-8 text.
var ErrInvalidToken = errors.New("invalid token")

var encoding = base64.RawURLEncoding

// Opaque encodes a record name as a token safe for use in a URL path segment.
func Opaque(name string) string {
	return encoding.EncodeToString([]byte(name))
}

// Reveal decodes a token produced by Opaque.
func Reveal(token string) (string, error) {
	b, err := encoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: not utf-8", ErrInvalidToken)
	}
	return string(b), nil
}
