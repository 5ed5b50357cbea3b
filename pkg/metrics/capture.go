package metrics

// Failure reasons reported by the sink.
const (
	ReasonTooLarge      = "too_large"
	ReasonInvalidMethod = "invalid_method"
	ReasonStorage       = "storage"
)

// BodySizeBuckets are the ctfsink_request_body_bytes bucket bounds.
var BodySizeBuckets = []float64{0, 256, 1 << 10, 16 << 10, 256 << 10, 1 << 20, 10 << 20}

// Capture holds the sink metrics. A nil *Capture records nothing.
type Capture struct {
	captured  *Counter
	failures  *Counter
	bodyBytes *Histogram
}

// NewCapture registers the sink metrics on r.
func NewCapture(r *Registry) *Capture {
	return &Capture{
		captured: r.NewCounter(
			"ctfsink_requests_captured_total",
			"Requests stored by the sink",
			"method", "kind",
		),
		failures: r.NewCounter(
			"ctfsink_capture_failures_total",
			"Requests the sink could not store",
			"reason",
		),
		bodyBytes: r.NewHistogram(
			"ctfsink_request_body_bytes",
			"Size of stored request bodies in bytes",
			BodySizeBuckets,
		),
	}
}

// Stored records one stored request.
func (c *Capture) Stored(method, kind string, bodyBytes int) {
	if c == nil {
		return
	}
	c.captured.Inc(methodLabel(method), kind)
	c.bodyBytes.Observe(float64(bodyBytes))
}

// Failed records one request that was not stored.
func (c *Capture) Failed(reason string) {
	if c == nil {
		return
	}
	c.failures.Inc(reason)
}

var standardMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "CONNECT": true, "OPTIONS": true, "TRACE": true,
}

// methodLabel keeps the method label bounded: clients may send any token.
func methodLabel(m string) string {
	if standardMethods[m] {
		return m
	}
	return "OTHER"
}
