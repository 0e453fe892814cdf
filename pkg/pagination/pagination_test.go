package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/reviews"+query, nil)
	return ParseParams(c)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"explicit values", "?limit=50&offset=10", 50, 10},
		{"limit clamped to max", "?limit=500", MaxLimit, 0},
		{"zero limit falls back", "?limit=0", DefaultLimit, 0},
		{"negative values fall back", "?limit=-5&offset=-2", DefaultLimit, 0},
		{"garbage falls back", "?limit=abc&offset=xyz", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(t, tt.query)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestBuildMeta(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		total     int64
		wantPages int
	}{
		{"exact pages", 20, 0, 100, 5},
		{"partial last page", 20, 0, 101, 6},
		{"empty result", 20, 0, 0, 0},
		{"single page", 20, 0, 7, 1},
		{"zero limit", 0, 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := BuildMeta(tt.limit, tt.offset, tt.total)
			assert.Equal(t, tt.limit, meta.Limit)
			assert.Equal(t, tt.offset, meta.Offset)
			assert.Equal(t, tt.total, meta.Total)
			assert.Equal(t, tt.wantPages, meta.TotalPages)
		})
	}
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(0, 20, 100))
	assert.True(t, HasMore(80, 20, 101))
	assert.False(t, HasMore(80, 20, 100))
	assert.False(t, HasMore(0, 20, 0))
}

func TestGetCurrentPage(t *testing.T) {
	assert.Equal(t, 1, GetCurrentPage(0, 20))
	assert.Equal(t, 2, GetCurrentPage(20, 20))
	assert.Equal(t, 3, GetCurrentPage(45, 20))
	assert.Equal(t, 1, GetCurrentPage(10, 0))
}
