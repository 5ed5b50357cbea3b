package store

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/gcalmettes/ctfsink/pkg/record"
	"github.com/gcalmettes/ctfsink/pkg/requestinfo"
)

// storedMeta is the structured head of a stored request.
type storedMeta struct {
	URI  string           `yaml:"uri"`
	Info requestinfo.Info `yaml:",inline"`
}

// storedDoc is the full stored document as read back.
type storedDoc struct {
	URI         string              `yaml:"uri"`
	Headers     map[string]string   `yaml:"headers"`
	Cookies     map[string]string   `yaml:"cookies"`
	QueryParams map[string][]string `yaml:"query_params"`
	Body        *string             `yaml:"body"`
}

// Detail is what Read returns for one record.
type Detail struct {
	Found       bool                `json:"found"`
	Name        string              `json:"name,omitempty"`
	URI         string              `json:"uri,omitempty"`
	Headers     map[string]string   `json:"headers"`
	Cookies     map[string]string   `json:"cookies"`
	QueryParams map[string][]string `json:"query_params"`
	Body        *string             `json:"body"`
	// Raw holds the whole file for records whose metadata could not be
	// structured.
	Raw *string `json:"raw,omitempty"`
}

// NotFound returns the detail used for every unknown, invalid or unreadable
// key: all sections empty.
func NotFound() Detail {
	return Detail{}
}

const bodyHeader = "body: |2+\n"

func rawMeta(req AddRequest) []byte {
	return fmt.Appendf(nil, "%#v\nuri: %q\n", req.Info, req.Target)
}

// encodeBody renders the body section. Text that a literal block preserves
// exactly is written as a literal block with keep chomping; anything else
// falls back to a double-quoted scalar.
func encodeBody(body string) ([]byte, error) {
	if body == "" {
		return nil, nil
	}
	if !utf8.ValidString(body) {
		return yaml.Marshal(struct {
			Body string `yaml:"body"`
		}{body})
	}
	if !literalSafe(body) {
		return yaml.Marshal(&yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: "body"},
				{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: body},
			},
		})
	}

	var b strings.Builder
	b.Grow(len(bodyHeader) + len(body) + 2*strings.Count(body, "\n") + 2)
	b.WriteString(bodyHeader)

	lines := strings.Split(body, "\n")
	last := len(lines) - 1
	for i, line := range lines {
		if i == last {
			if line != "" {
				b.WriteString("  ")
				b.WriteString(line)
			}
			break
		}
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// literalSafe reports whether every character of s survives a YAML literal
// block unchanged.
func literalSafe(s string) bool {
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
		case r < 0x20 || r == 0x7f:
			return false
		case r >= 0x80 && r <= 0x9f:
			return false
		case r == '\u2028' || r == '\u2029' || r == '\ufeff':
			return false
		}
	}
	return true
}

func decodeDetail(rec record.Record, content []byte) (Detail, error) {
	var doc storedDoc
	if err := yaml.Unmarshal(content, &doc); err != nil {
		if rec.Kind == record.KindRaw {
			raw := string(content)
			return Detail{Found: true, Name: rec.Name(), Raw: &raw}, nil
		}
		return Detail{}, fmt.Errorf("decode %s: %w", rec.Name(), err)
	}
	return Detail{
		Found:       true,
		Name:        rec.Name(),
		URI:         doc.URI,
		Headers:     doc.Headers,
		Cookies:     doc.Cookies,
		QueryParams: doc.QueryParams,
		Body:        doc.Body,
	}, nil
}
