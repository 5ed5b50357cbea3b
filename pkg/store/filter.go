package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-analyze/bulk"

	"github.com/gcalmettes/ctfsink/pkg/record"
)

// Newest sorts records newest first, in place, and returns them.
// Records captured in the same second are ordered by name, descending.
func Newest(records []record.Record) []record.Record {
	slices.SortStableFunc(records, func(a, b record.Record) int {
		if c := b.Time.Compare(a.Time); c != 0 {
			return c
		}
		return strings.Compare(b.Name(), a.Name())
	})
	return records
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	// Method matches the HTTP method, case-insensitively.
	Method string
	// PathGlob is a doublestar pattern matched against the record path.
	PathGlob string
	// Since drops records captured before it.
	Since time.Time
	// Limit caps the number of records returned.
	Limit int
}

// Validate checks the glob syntax and limit.
func (f Filter) Validate() error {
	if f.PathGlob != "" && !doublestar.ValidatePattern(f.PathGlob) {
		return fmt.Errorf("invalid path pattern %q", f.PathGlob)
	}
	if f.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", f.Limit)
	}
	return nil
}

// Match reports whether r passes the filter, ignoring Limit.
func (f Filter) Match(r record.Record) bool {
	if f.Method != "" && !strings.EqualFold(f.Method, r.Method) {
		return false
	}
	if !f.Since.IsZero() && r.Time.Before(f.Since) {
		return false
	}
	if f.PathGlob != "" {
		ok, err := doublestar.Match(f.PathGlob, r.Path)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Select returns the records matching f, keeping their order, truncated to
// f.Limit when it is positive.
func Select(records []record.Record, f Filter) []record.Record {
	out := bulk.SliceFilter(f.Match, records)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
