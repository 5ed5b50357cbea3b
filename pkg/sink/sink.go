// Package sink implements the capture endpoint: every request, whatever its
// method or path, is stored as one record and answered with an empty 200.
package sink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gcalmettes/ctfsink/internal/httpserver"
	"github.com/gcalmettes/ctfsink/pkg/httputil"
	"github.com/gcalmettes/ctfsink/pkg/logging"
	"github.com/gcalmettes/ctfsink/pkg/metrics"
	"github.com/gcalmettes/ctfsink/pkg/record"
	"github.com/gcalmettes/ctfsink/pkg/requestinfo"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// Recorder persists captured requests.
type Recorder interface {
	Add(ctx context.Context, req store.AddRequest) (record.Record, error)
}

// Handler captures every request it receives.
type Handler struct {
	Recorder Recorder
	Logger   *slog.Logger
	// MaxBodyBytes caps the body size. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// DecodeBodies undoes gzip, deflate and zstd content encodings before
	// storing. Bodies that fail to decode are stored as received.
	DecodeBodies bool
	// Metrics counts stored and rejected requests. Nil disables it.
	Metrics *metrics.Capture
}

// NewHandler returns a handler storing into rec.
func NewHandler(rec Recorder, logger *slog.Logger, maxBodyBytes int64, decodeBodies bool) *Handler {
	return &Handler{
		Recorder:     rec,
		Logger:       logging.OrNop(logger),
		MaxBodyBytes: maxBodyBytes,
		DecodeBodies: decodeBodies,
	}
}

func (h *Handler) maxBody() int64 {
	if h.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return h.MaxBodyBytes
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logging.OrNop(h.Logger)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("request body too large", "method", r.Method, "path", r.URL.Path, "limit", tooLarge.Limit)
			h.Metrics.Failed(metrics.ReasonTooLarge)
			httputil.WriteTooLarge(w, "request body exceeds the configured limit")
			return
		}
		log.Warn("reading request body failed", "error", err)
		httputil.WriteBadRequest(w, "could not read request body")
		return
	}

	if enc := r.Header.Get("Content-Encoding"); h.DecodeBodies && enc != "" && len(data) > 0 {
		decoded, err := decodeBody(data, enc, h.maxBody())
		if err != nil {
			log.Debug("keeping encoded body", "encoding", enc, "error", err)
		} else {
			data = decoded
		}
	}

	target := r.RequestURI
	if target == "" {
		target = r.URL.RequestURI()
	}

	body := strings.ToValidUTF8(string(data), "\uFFFD")
	rec, err := h.Recorder.Add(r.Context(), store.AddRequest{
		Method: r.Method,
		Target: target,
		Path:   r.URL.EscapedPath(),
		Info:   requestinfo.FromRequest(r),
		Body:   body,
	})
	if err != nil {
		if errors.Is(err, record.ErrInvalidMethod) {
			h.Metrics.Failed(metrics.ReasonInvalidMethod)
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.Metrics.Failed(metrics.ReasonStorage)
		log.Error("storing request failed", "method", r.Method, "target", target, "error", err)
		httputil.WriteInternalError(w, httputil.CodeStorageFailed, "request could not be stored")
		return
	}

	h.Metrics.Stored(rec.Method, rec.Kind.String(), len(body))
	log.Info("request captured", "name", rec.Name(), "key", rec.Key())
	w.WriteHeader(http.StatusOK)
}

// Options configures the sink server.
type Options struct {
	Addr         string
	MaxBodyBytes int64
	DecodeBodies bool
	Metrics      *metrics.Capture
	httpserver.Options
}

// NewServer returns the sink HTTP server storing into st. Cleartext HTTP/2
// is accepted alongside HTTP/1.
func NewServer(st *store.Store, opts Options) *httpserver.Server {
	h := NewHandler(st, opts.Logger, opts.MaxBodyBytes, opts.DecodeBodies)
	h.Metrics = opts.Metrics
	opts.Options.H2C = true
	return httpserver.New("sink", opts.Addr, h, opts.Options)
}
