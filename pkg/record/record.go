package record

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/gcalmettes/ctfsink/pkg/keycodec"
)

// Kind tells how the metadata section of a stored request was written.
type Kind int

const (
	// KindStructured records carry YAML metadata.
	KindStructured Kind = iota
	// KindRaw records carry a debug rendering because YAML encoding failed.
	KindRaw
)

// Ext returns the file extension used for the kind, without the dot.
func (k Kind) Ext() string {
	if k == KindRaw {
		return "in"
	}
	return "yaml"
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindRaw {
		return "raw"
	}
	return "structured"
}

func kindFromExt(ext string) (Kind, bool) {
	switch ext {
	case "yaml":
		return KindStructured, true
	case "in":
		return KindRaw, true
	default:
		return 0, false
	}
}

// MaxPathLen is the longest escaped path that is encoded into a name.
// Longer paths are left out so a name always fits in a 255 byte filename.
const MaxPathLen = 180

const (
	dateLayout  = "20060102"
	clockLayout = "150405"
	nameLayout  = dateLayout + "-" + clockLayout

	pathSep     = "/"
	encodedSep  = "|"
	displayDate = "2006/01/02"
	displayTime = "15:04:05"
)

var (
	// ErrParse is returned when a filename is not a record name.
	ErrParse = errors.New("malformed record name")
	// ErrInvalidMethod is returned when a method cannot be encoded in a name.
	ErrInvalidMethod = errors.New("invalid method")
)

// Record identifies one stored request.
type Record struct {
	// Time is the local capture time truncated to the second.
	Time time.Time
	// Method is the HTTP method token.
	Method string
	// Path is the escaped request path. Empty when it was not encoded.
	Path string
	// Kind selects the file extension.
	Kind Kind
}

// New builds a record for a request captured at t.
// The path is dropped when it cannot be encoded into a name.
func New(t time.Time, method, path string, kind Kind) (Record, error) {
	if !ValidMethod(method) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	if !encodablePath(path) {
		path = ""
	}
	return Record{
		Time:   t.Truncate(time.Second),
		Method: method,
		Path:   path,
		Kind:   kind,
	}, nil
}

// ValidMethod reports whether m is an RFC 9110 token that can be placed in a
// name. The separator "-" is excluded so the method boundary stays unambiguous.
func ValidMethod(m string) bool {
	return httpguts.ValidHeaderFieldName(m) && !strings.Contains(m, "-")
}

func encodablePath(p string) bool {
	return p != "" && len(p) <= MaxPathLen && !strings.Contains(p, encodedSep)
}

// Name returns the canonical filename of the record.
func (r Record) Name() string {
	var b strings.Builder
	b.WriteString(r.Time.Format(nameLayout))
	b.WriteByte('-')
	b.WriteString(r.Method)
	if r.Path != "" {
		b.WriteByte('-')
		b.WriteString(strings.ReplaceAll(r.Path, pathSep, encodedSep))
	}
	b.WriteByte('.')
	b.WriteString(r.Kind.Ext())
	return b.String()
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return r.Name()
}

// Equal reports whether r and o describe the same record.
func (r Record) Equal(o Record) bool {
	return r.Time.Equal(o.Time) && r.Method == o.Method && r.Path == o.Path && r.Kind == o.Kind
}

// Key returns the opaque token used to address the record over HTTP.
func (r Record) Key() string {
	return keycodec.Opaque(r.Name())
}

// Date returns the capture date formatted for display.
func (r Record) Date() string {
	return r.Time.Format(displayDate)
}

// Clock returns the capture time of day formatted for display.
func (r Record) Clock() string {
	return r.Time.Format(displayTime)
}

// DisplayPath returns the path cut to at most max runes, with "..." appended
// when it was cut.
func (r Record) DisplayPath(max int) string {
	return Truncate(r.Path, max)
}

// Truncate cuts s to at most max runes and appends "..." when it was cut.
// A max of zero or less leaves s unchanged.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Badge returns the CSS class used to color the method in listings.
func (r Record) Badge() string {
	switch r.Method {
	case "GET":
		return "bg-primary"
	case "POST":
		return "bg-danger"
	case "PATCH":
		return "bg-success"
	case "PUT":
		return "bg-info"
	case "OPTIONS":
		return "bg-warning"
	default:
		return "bg-secondary"
	}
}
