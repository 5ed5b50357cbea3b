package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	t.Run("with labels", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("http_requests", "Total HTTP requests", "method", "status")

		c.Inc("GET", "200")
		c.Inc("GET", "200")
		vec, err := c.WithLabels("POST", "201")
		require.NoError(t, err)
		require.NoError(t, vec.Add(5))

		samples := c.Collect()
		require.Len(t, samples, 2)
		assert.Equal(t, []Label{{"method", "GET"}, {"status", "200"}}, samples[0].Labels)
		assert.Equal(t, 2.0, samples[0].Value)
		assert.Equal(t, 5.0, samples[1].Value)
	})

	t.Run("label count mismatch", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("x_total", "x", "a")

		_, err := c.WithLabels("1", "2")
		assert.ErrorIs(t, err, ErrLabelCountMismatch)
		c.Inc()
		assert.Empty(t, c.Collect())
	})

	t.Run("negative add", func(t *testing.T) {
		r := NewRegistry()
		vec, err := r.NewCounter("y_total", "y").WithLabels()
		require.NoError(t, err)
		assert.Error(t, vec.Add(-1))
	})

	t.Run("concurrent", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("z_total", "z", "k")

		var wg sync.WaitGroup
		for range 50 {
			wg.Go(func() {
				for range 100 {
					c.Inc("v")
				}
			})
		}
		wg.Wait()
		assert.Equal(t, 5000.0, c.Collect()[0].Value)
	})
}

func TestHistogram(t *testing.T) {
	r := NewRegistry()
	h := r.NewHistogram("size_bytes", "sizes", []float64{100, 10})

	for _, v := range []float64{5, 10, 50, 1000} {
		h.Observe(v)
	}

	got := map[string]float64{}
	for _, s := range h.Collect() {
		key := s.Name
		for _, l := range s.Labels {
			key += "/" + l.Value
		}
		got[key] = s.Value
	}
	assert.Equal(t, map[string]float64{
		"size_bytes_bucket/10":   2,
		"size_bytes_bucket/100":  3,
		"size_bytes_bucket/+Inf": 4,
		"size_bytes_sum":         1065,
		"size_bytes_count":       4,
	}, got)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("dup_total", "first")
	assert.Panics(t, func() { r.NewCounter("dup_total", "second") })
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("quoted_total", "Help with \\ and\nnewline", "v")
	c.Inc(`say "hi"`)
	r.NewCounter("unused_total", "never incremented")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, "text/plain; version=0.0.4; charset=utf-8", rec.Header().Get("Content-Type"))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`# HELP quoted_total Help with \\ and\nnewline`,
		`# TYPE quoted_total counter`,
		`quoted_total{v="say \"hi\""} 1`,
		``,
	}, "\n"), string(body))
}

func TestCapture(t *testing.T) {
	r := NewRegistry()
	c := NewCapture(r)

	c.Stored("POST", "structured", 300)
	c.Stored("M-SEARCH", "structured", 0)
	c.Failed(ReasonTooLarge)

	var b strings.Builder
	_, err := r.WriteTo(&b)
	require.NoError(t, err)
	out := b.String()

	assert.Contains(t, out, `ctfsink_requests_captured_total{method="POST",kind="structured"} 1`)
	assert.Contains(t, out, `ctfsink_requests_captured_total{method="OTHER",kind="structured"} 1`)
	assert.Contains(t, out, `ctfsink_capture_failures_total{reason="too_large"} 1`)
	assert.Contains(t, out, `ctfsink_request_body_bytes_bucket{le="256"} 1`)
	assert.Contains(t, out, `ctfsink_request_body_bytes_bucket{le="1024"} 2`)
	assert.Contains(t, out, `ctfsink_request_body_bytes_count 2`)
}

func TestCapture_Nil(t *testing.T) {
	var c *Capture
	assert.NotPanics(t, func() {
		c.Stored("GET", "structured", 1)
		c.Failed(ReasonStorage)
	})
}
