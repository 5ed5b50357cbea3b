// Package requestinfo snapshots the metadata of an inbound HTTP request:
// headers, cookies and query parameters.
package requestinfo

import (
	"net/http"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Info is the metadata section of a stored request.
type Info struct {
	// Headers maps each header name to its last value. Names are in the
	// canonical form net/http gives them (X-Trace, not x-trace); values
	// are kept as received. Cookie headers are excluded and surface in
	// Cookies instead.
	Headers map[string]string `yaml:"headers" json:"headers"`
	// Cookies maps each cookie name to its value with whitespace and
	// surrounding quotes trimmed. The last occurrence of a name wins.
	Cookies map[string]string `yaml:"cookies" json:"cookies"`
	// QueryParams maps each parameter name to every value in arrival order.
	QueryParams map[string][]string `yaml:"query_params" json:"query_params"`
}

// Pair is one decoded query parameter occurrence.
type Pair struct {
	Name  string
	Value string
}

// Extract builds an Info from request headers and decoded query pairs.
func Extract(h http.Header, pairs []Pair) Info {
	info := Info{
		Headers:     make(map[string]string, len(h)),
		Cookies:     parseCookies(h),
		QueryParams: make(map[string][]string),
	}

	for name, values := range h {
		if strings.EqualFold(name, "Cookie") || len(values) == 0 {
			continue
		}
		info.Headers[name] = values[len(values)-1]
	}

	for _, p := range pairs {
		info.QueryParams[p.Name] = append(info.QueryParams[p.Name], p.Value)
	}

	return info
}

// FromRequest is Extract applied to r.
func FromRequest(r *http.Request) Info {
	return Extract(r.Header, ParseQuery(r.URL.RawQuery))
}

// parseCookies splits every Cookie header on ';' and each piece on its
// first '='. Values are not checked against RFC 6265, so quoted JSON,
// backslashes and non-ASCII text survive. Pieces without '=' or with an
// empty name are skipped.
func parseCookies(h http.Header) map[string]string {
	cookies := make(map[string]string)
	for name, values := range h {
		if !strings.EqualFold(name, "Cookie") {
			continue
		}
		for _, line := range values {
			for piece := range strings.SplitSeq(line, ";") {
				k, v, ok := strings.Cut(piece, "=")
				k = strings.TrimSpace(k)
				if !ok || k == "" {
					continue
				}
				cookies[k] = trimCookieValue(v)
			}
		}
	}
	return cookies
}

func trimCookieValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return strings.TrimSpace(v)
}

// ParseQuery splits a raw query string into decoded pairs, keeping every
// occurrence in order. Components that fail to unescape are kept verbatim.
func ParseQuery(raw string) []Pair {
	var pairs []Pair
	for raw != "" {
		var part string
		part, raw, _ = strings.Cut(raw, "&")
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, Pair{Name: unescape(name), Value: unescape(value)})
	}
	return pairs
}

func unescape(s string) string {
	u, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return u
}

// YAML renders the info as a YAML document.
func (i Info) YAML() ([]byte, error) {
	return yaml.Marshal(i)
}
