// Package dashboard serves the read side of ctfsink: an HTML listing of
// captured requests, per-request detail fragments, embedded static assets
// and a small JSON API over the same data.
package dashboard

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gcalmettes/ctfsink/internal/httpserver"
	"github.com/gcalmettes/ctfsink/pkg/logging"
	"github.com/gcalmettes/ctfsink/pkg/record"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DisplayPathLen is the number of path characters shown in the listing.
const DisplayPathLen = 32

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Reader is the read access the dashboard needs to the records directory.
type Reader interface {
	All(ctx context.Context) ([]record.Record, error)
	Read(ctx context.Context, key string) store.Detail
}

// Dashboard is the dashboard HTTP handler.
type Dashboard struct {
	reader Reader
	log    *slog.Logger
	mux    *http.ServeMux
}

// New returns the dashboard handler reading from r.
func New(r Reader, logger *slog.Logger) *Dashboard {
	d := &Dashboard{
		reader: r,
		log:    logging.OrNop(logger),
		mux:    http.NewServeMux(),
	}
	d.registerRoutes()
	return d
}

func (d *Dashboard) registerRoutes() {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	d.mux.HandleFunc("GET /{$}", d.handleIndex)
	d.mux.HandleFunc("GET /detail/{key}", d.handleDetail)
	d.mux.Handle("GET /static/{file...}", http.StripPrefix("/static/", http.FileServerFS(static)))

	d.mux.HandleFunc("GET /api/requests", d.handleAPIList)
	d.mux.HandleFunc("GET /api/requests/{key}", d.handleAPIGet)
}

// HandleMetrics serves h on GET /metrics.
func (d *Dashboard) HandleMetrics(h http.Handler) {
	d.mux.Handle("GET /metrics", h)
}

// ServeHTTP implements http.Handler.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mux.ServeHTTP(w, r)
}

// Row is one line of the listing.
type Row struct {
	Date   string
	Clock  string
	Method string
	Path   string
	Badge  string
	Key    string
}

func (d *Dashboard) rowOf(ctx context.Context, r record.Record) Row {
	return Row{
		Date:   r.Date(),
		Clock:  r.Clock(),
		Method: r.Method,
		Path:   record.Truncate(ListedPath(ctx, d.reader, r), DisplayPathLen),
		Badge:  r.Badge(),
		Key:    r.Key(),
	}
}

// ListedPath returns the path shown for r in listings. Records whose path
// could not be carried by the name fall back to the uri stored in the file.
func ListedPath(ctx context.Context, rd Reader, r record.Record) string {
	if r.Path != "" {
		return r.Path
	}
	return rd.Read(ctx, r.Key()).URI
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	records, err := d.reader.All(r.Context())
	if err != nil {
		d.log.Error("listing requests failed", "error", err)
		http.Error(w, "could not list requests", http.StatusInternalServerError)
		return
	}
	records = store.Newest(records)

	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = d.rowOf(r.Context(), rec)
	}

	d.render(w, "index.html", map[string]any{
		"Requests": rows,
		"Count":    len(rows),
	})
}

func (d *Dashboard) handleDetail(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	detail := d.reader.Read(r.Context(), key)
	d.render(w, "detail.html", SectionsOf(key, detail))
}

func (d *Dashboard) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		d.log.Error("rendering template failed", "template", name, "error", err)
	}
}

// Options configures the dashboard server.
type Options struct {
	Addr string
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
	httpserver.Options
}

// NewServer returns the dashboard HTTP server reading from st.
func NewServer(st *store.Store, opts Options) *httpserver.Server {
	d := New(st, opts.Logger)
	if opts.Metrics != nil {
		d.HandleMetrics(opts.Metrics)
	}
	return httpserver.New("dashboard", opts.Addr, d, opts.Options)
}
