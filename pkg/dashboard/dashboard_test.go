package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcalmettes/ctfsink/pkg/httputil"
	"github.com/gcalmettes/ctfsink/pkg/keycodec"
	"github.com/gcalmettes/ctfsink/pkg/metrics"
	"github.com/gcalmettes/ctfsink/pkg/record"
	"github.com/gcalmettes/ctfsink/pkg/requestinfo"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

func seededStore(t *testing.T) (*store.Store, []record.Record) {
	t.Helper()
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	n := 0
	st := store.New(t.TempDir(),
		store.WithCodec(record.Codec{Location: time.UTC}),
		store.WithClock(func() time.Time {
			n++
			return start.Add(time.Duration(n) * time.Second)
		}),
	)

	reqs := []store.AddRequest{
		{Method: "GET", Target: "/index.php?id=1", Path: "/index.php",
			Info: requestinfo.Extract(http.Header{"User-Agent": {"curl"}}, requestinfo.ParseQuery("id=1"))},
		{Method: "POST", Target: "/api/login", Path: "/api/login",
			Info: requestinfo.Extract(http.Header{"Cookie": {"sid=s3cr3t"}}, nil),
			Body: `{"user":"admin","pass":"<hunter2>"}`},
		{Method: "DELETE", Target: "/" + strings.Repeat("x", 60), Path: "/" + strings.Repeat("x", 60),
			Info: requestinfo.Extract(nil, nil), Body: "plain text"},
	}

	var records []record.Record
	for _, r := range reqs {
		rec, err := st.Add(context.Background(), r)
		require.NoError(t, err)
		records = append(records, rec)
	}
	return st, records
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndex(t *testing.T) {
	t.Parallel()
	st, records := seededStore(t)
	d := New(st, nil)

	rec := get(t, d, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	html := rec.Body.String()
	assert.Contains(t, html, "3 requests")
	assert.Contains(t, html, "2024/03/15")
	assert.Contains(t, html, "09:00:02")
	assert.Contains(t, html, `class="badge bg-danger"`)
	assert.Contains(t, html, "/"+strings.Repeat("x", 31)+"...")

	// newest first
	iDelete := strings.Index(html, records[2].Key())
	iPost := strings.Index(html, records[1].Key())
	iGet := strings.Index(html, records[0].Key())
	require.True(t, iDelete > 0 && iPost > 0 && iGet > 0)
	assert.Less(t, iDelete, iPost)
	assert.Less(t, iPost, iGet)
}

func TestIndex_Empty(t *testing.T) {
	t.Parallel()
	d := New(store.New(t.TempDir()), nil)

	rec := get(t, d, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No request captured yet.")
}

func TestIndex_PathOutsideNameUsesStoredURI(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	st := store.New(t.TempDir(),
		store.WithCodec(record.Codec{Location: time.UTC}),
		store.WithClock(func() time.Time {
			at = at.Add(time.Second)
			return at
		}),
	)
	long := "/" + strings.Repeat("y", record.MaxPathLen+20)
	piped := "/a|b"

	var records []record.Record
	for _, p := range []string{long, piped} {
		rec, err := st.Add(context.Background(), store.AddRequest{
			Method: "GET", Target: p + "?q=1", Path: p, Info: requestinfo.Extract(nil, nil),
		})
		require.NoError(t, err)
		require.Empty(t, rec.Path)
		records = append(records, rec)
	}

	d := New(st, nil)
	html := get(t, d, "/").Body.String()
	assert.Contains(t, html, "/"+strings.Repeat("y", DisplayPathLen-1)+"...")
	assert.Contains(t, html, "/a|b?q=1")

	detail := get(t, d, "/detail/"+records[0].Key()).Body.String()
	assert.Contains(t, detail, long+"?q=1")
}

func TestDetail(t *testing.T) {
	t.Parallel()
	st, records := seededStore(t)
	d := New(st, nil)

	rec := get(t, d, "/detail/"+records[1].Key())
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()

	assert.Equal(t, 4, strings.Count(html, "<pre><code class='language-yaml'"))
	assert.Contains(t, html, "sid: s3cr3t")
	assert.Contains(t, html, "id='uri-"+records[1].Key()+"'>/api/login</code>")
	assert.Contains(t, html, "id='body-"+records[1].Key()+"'")
	// pretty printed, sorted and escaped
	assert.Contains(t, html, "&#34;pass&#34;: &#34;&lt;hunter2&gt;&#34;")
	assert.Less(t, strings.Index(html, "&#34;pass&#34;"), strings.Index(html, "&#34;user&#34;"))
	assert.NotContains(t, html, "<hunter2>")
}

func TestDetail_PlainBodyVerbatim(t *testing.T) {
	t.Parallel()
	st, records := seededStore(t)
	d := New(st, nil)

	rec := get(t, d, "/detail/"+records[2].Key())
	assert.Contains(t, rec.Body.String(), ">plain text</code>")
}

func TestDetail_UnknownKeysRenderEmptySections(t *testing.T) {
	t.Parallel()
	st, _ := seededStore(t)
	d := New(st, nil)

	keys := []string{
		keycodec.Opaque("20990101-000000-GET.yaml"),
		keycodec.Opaque("../../etc/passwd"),
		"not*base64",
	}
	for _, k := range keys {
		rec := get(t, d, "/detail/"+k)
		require.Equal(t, http.StatusOK, rec.Code, k)
		assert.Equal(t, 5, strings.Count(rec.Body.String(), "'></code></pre>"), k)
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()
	d := New(store.New(t.TempDir()), nil)

	rec := get(t, d, "/static/app.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/detail/")

	rec = get(t, d, "/static/missing.css")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	d := New(store.New(t.TempDir()), nil)
	assert.Equal(t, http.StatusNotFound, get(t, d, "/metrics").Code)

	reg := metrics.NewRegistry()
	metrics.NewCapture(reg).Failed(metrics.ReasonStorage)
	d.HandleMetrics(reg.Handler())

	rec := get(t, d, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ctfsink_capture_failures_total{reason="storage"} 1`)
}

func TestAPIList(t *testing.T) {
	t.Parallel()
	st, records := seededStore(t)
	d := New(st, nil)

	tests := []struct {
		name      string
		query     string
		wantNames []string
	}{
		{"all newest first", "", []string{records[2].Name(), records[1].Name(), records[0].Name()}},
		{"method", "?method=post", []string{records[1].Name()}},
		{"path glob", "?path=/api/**", []string{records[1].Name()}},
		{"limit", "?limit=1", []string{records[2].Name()}},
		{"since", "?since=2024-03-15T09:00:02Z", []string{records[2].Name(), records[1].Name()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, d, "/api/requests"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp ListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 3, resp.Total)
			assert.Equal(t, len(tt.wantNames), resp.Count)
			names := make([]string, len(resp.Requests))
			for i, r := range resp.Requests {
				names[i] = r.Name
				assert.Equal(t, keycodec.Opaque(r.Name), r.Key)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestAPIList_BadFilter(t *testing.T) {
	t.Parallel()
	d := New(store.New(t.TempDir()), nil)

	for _, q := range []string{"?limit=abc", "?limit=-1", "?path=[", "?since=yesterday"} {
		rec := get(t, d, "/api/requests"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestAPIGet(t *testing.T) {
	t.Parallel()
	st, records := seededStore(t)
	d := New(st, nil)

	rec := get(t, d, "/api/requests/"+records[0].Key())
	require.Equal(t, http.StatusOK, rec.Code)
	var detail store.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.True(t, detail.Found)
	assert.Equal(t, "/index.php?id=1", detail.URI)
	assert.Equal(t, []string{"1"}, detail.QueryParams["id"])

	rec = get(t, d, "/api/requests/"+keycodec.Opaque("nope.yaml"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, httputil.CodeNotFound, errResp.Error)
}

func TestPrettyBody(t *testing.T) {
	t.Parallel()

	t.Run("json object is indented and sorted", func(t *testing.T) {
		t.Parallel()
		out := PrettyBody(`{"b":1,"a":[1,2]}`)
		assert.Contains(t, out, "\n  \"a\": ")
		assert.Less(t, strings.Index(out, `"a"`), strings.Index(out, `"b"`))

		var v map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &v))
		assert.EqualValues(t, 1, v["b"])
	})

	tests := []struct {
		name string
		in   string
	}{
		{"not json", "hello"},
		{"broken json", `{"a":`},
		{"scalar json kept", "42"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.in, PrettyBody(tt.in))
		})
	}
}
