package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gcalmettes/ctfsink/pkg/httputil"
	"github.com/gcalmettes/ctfsink/pkg/record"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

// RequestSummary is one entry of the JSON listing.
type RequestSummary struct {
	Key    string    `json:"key"`
	Name   string    `json:"name"`
	Time   time.Time `json:"time"`
	Method string    `json:"method"`
	Path   string    `json:"path"`
	Kind   string    `json:"kind"`
}

// ListResponse is the body of GET /api/requests.
type ListResponse struct {
	Requests []RequestSummary `json:"requests"`
	Count    int              `json:"count"`
	Total    int              `json:"total"`
}

// SummaryOf converts a record to its JSON listing form.
func SummaryOf(r record.Record) RequestSummary {
	return RequestSummary{
		Key:    r.Key(),
		Name:   r.Name(),
		Time:   r.Time,
		Method: r.Method,
		Path:   r.Path,
		Kind:   r.Kind.String(),
	}
}

// ParseFilter reads listing filters from query parameters:
// method, path (glob), since (RFC 3339) and limit.
func ParseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		Method:   q.Get("method"),
		PathGlob: q.Get("path"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.Since = t
	}
	return f, f.Validate()
}

func (d *Dashboard) handleAPIList(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	records, err := d.reader.All(r.Context())
	if err != nil {
		d.log.Error("listing requests failed", "error", err)
		httputil.WriteInternalError(w, httputil.CodeStorageFailed, "could not list requests")
		return
	}
	total := len(records)
	selected := store.Select(store.Newest(records), f)

	resp := ListResponse{
		Requests: make([]RequestSummary, len(selected)),
		Count:    len(selected),
		Total:    total,
	}
	for i, rec := range selected {
		resp.Requests[i] = SummaryOf(rec)
	}
	httputil.WriteOK(w, resp)
}

func (d *Dashboard) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	detail := d.reader.Read(r.Context(), r.PathValue("key"))
	if !detail.Found {
		httputil.WriteNotFound(w, "no request stored under this key")
		return
	}
	httputil.WriteOK(w, detail)
}
