package record

import (
	"fmt"
	"strings"
	"time"
)

// Codec parses record names against a time zone.
// The zero value uses time.Local.
type Codec struct {
	Location *time.Location
}

// Parse parses name using the local time zone.
func Parse(name string) (Record, error) {
	return Codec{}.Parse(name)
}

func (c Codec) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// In returns t expressed in the codec's time zone.
func (c Codec) In(t time.Time) time.Time {
	return t.In(c.location())
}

// Parse recovers the record described by name.
// Names whose wall clock time does not exist in the zone, or exists twice,
// are rejected.
func (c Codec) Parse(name string) (Record, error) {
	date, rest, ok := strings.Cut(name, "-")
	if !ok {
		return Record{}, fmt.Errorf("%w: %q: missing date separator", ErrParse, name)
	}
	clock, rest, ok := strings.Cut(rest, "-")
	if !ok {
		return Record{}, fmt.Errorf("%w: %q: missing time separator", ErrParse, name)
	}
	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return Record{}, fmt.Errorf("%w: %q: missing extension", ErrParse, name)
	}
	stem, ext := rest[:dot], rest[dot+1:]

	kind, ok := kindFromExt(ext)
	if !ok {
		return Record{}, fmt.Errorf("%w: %q: unknown extension %q", ErrParse, name, ext)
	}

	method, encPath, hasPath := strings.Cut(stem, "-")
	if !ValidMethod(method) {
		return Record{}, fmt.Errorf("%w: %q: invalid method %q", ErrParse, name, method)
	}
	if hasPath && (encPath == "" || strings.Contains(encPath, pathSep)) {
		return Record{}, fmt.Errorf("%w: %q: invalid path segment", ErrParse, name)
	}

	t, err := c.parseTime(date, clock)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %q: %w", ErrParse, name, err)
	}

	return Record{
		Time:   t,
		Method: method,
		Path:   strings.ReplaceAll(encPath, encodedSep, pathSep),
		Kind:   kind,
	}, nil
}

func (c Codec) parseTime(date, clock string) (time.Time, error) {
	if len(date) != len(dateLayout) || len(clock) != len(clockLayout) || !digits(date) || !digits(clock) {
		return time.Time{}, fmt.Errorf("timestamp %s-%s is not %s", date, clock, nameLayout)
	}
	wall, err := time.Parse(nameLayout, date+"-"+clock)
	if err != nil {
		return time.Time{}, err
	}

	loc := c.location()
	switch n := wallMatches(wall, loc); {
	case n == 0:
		return time.Time{}, fmt.Errorf("%s does not exist in %s", wall.Format(time.DateTime), loc)
	case n > 1:
		return time.Time{}, fmt.Errorf("%s is ambiguous in %s", wall.Format(time.DateTime), loc)
	}
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc), nil
}

// wallMatches counts the instants whose wall clock in loc reads wall.
// wall carries the clock reading in UTC. Zone offsets are sampled a day
// either side, which covers every transition of a real zone.
func wallMatches(wall time.Time, loc *time.Location) int {
	want := wall.Format(nameLayout)
	seen := make(map[int]bool, 3)
	n := 0
	for _, probe := range []time.Duration{-26 * time.Hour, 0, 26 * time.Hour} {
		_, off := wall.Add(probe).In(loc).Zone()
		if seen[off] {
			continue
		}
		seen[off] = true
		candidate := wall.Add(-time.Duration(off) * time.Second)
		if candidate.In(loc).Format(nameLayout) == want {
			n++
		}
	}
	return n
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
