package id

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

var uuidV4 = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNew_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := New()
		assert.Regexp(t, uuidV4, v)
	}
}

func TestNew_ConcurrentUniqueness(t *testing.T) {
	const goroutines = 10
	const perG = 100

	var mu sync.Mutex
	seen := make(map[string]bool, goroutines*perG)
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, perG)
			for i := range local {
				local[i] = New()
			}
			mu.Lock()
			defer mu.Unlock()
			for _, v := range local {
				if seen[v] {
					t.Errorf("duplicate id %s", v)
				}
				seen[v] = true
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, goroutines*perG)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "123e4567", Short("123e4567-e89b-42d3-a456-426614174000"))
	assert.Equal(t, "not-a-uuid", Short("not-a-uuid"))
	assert.Len(t, Short(New()), 8)
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"keeps valid client id", "123E4567-E89B-42D3-A456-426614174000", "123e4567-e89b-42d3-a456-426614174000"},
		{"replaces garbage", "<script>", ""},
		{"generates when missing", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set(Header, tt.header)
			}
			got := FromRequest(r)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.Regexp(t, uuidV4, got)
		})
	}
}
