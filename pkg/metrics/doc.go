// Package metrics exposes ctfsink counters in the Prometheus text
// exposition format (text/plain; version=0.0.4).
//
// Only counters and histograms are supported; both may carry labels and are
// safe for concurrent use.
//
// # Capture metrics
//
// NewCapture registers the metrics the sink updates:
//
//   - ctfsink_requests_captured_total: requests stored (labels: method, kind)
//   - ctfsink_capture_failures_total: requests not stored (labels: reason)
//   - ctfsink_request_body_bytes: stored body sizes
//
// # Usage
//
//	registry := metrics.NewRegistry()
//	capture := metrics.NewCapture(registry)
//	capture.Stored("POST", "structured", 512)
//
//	http.Handle("/metrics", registry.Handler())
package metrics
