package dashboard

import (
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/gcalmettes/ctfsink/pkg/store"
)

// Sections is the rendered content of a detail fragment.
type Sections struct {
	Key         string
	URI         string
	Headers     string
	Cookies     string
	QueryParams string
	Body        string
}

// SectionsOf renders d for display. A detail that was not found renders
// every section empty.
func SectionsOf(key string, d store.Detail) Sections {
	s := Sections{Key: key}
	if !d.Found {
		return s
	}
	s.URI = d.URI
	s.Headers = yamlSection(d.Headers)
	s.Cookies = yamlSection(d.Cookies)
	s.QueryParams = yamlSection(d.QueryParams)
	switch {
	case d.Body != nil:
		s.Body = PrettyBody(*d.Body)
	case d.Raw != nil:
		s.Body = *d.Raw
	}
	return s
}

func yamlSection[M ~map[string]V, V any](m M) string {
	if len(m) == 0 {
		return ""
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return ""
	}
	return string(out)
}

var prettyJSON = &ojg.Options{Indent: 2, Sort: true, HTMLUnsafe: true}

// PrettyBody re-indents body when it is a JSON object or array, and returns
// it unchanged otherwise.
func PrettyBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return body
	}
	v, err := oj.ParseString(trimmed)
	if err != nil {
		return body
	}
	return oj.JSON(v, prettyJSON)
}
