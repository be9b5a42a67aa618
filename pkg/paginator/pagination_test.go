package paginator

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/v1/tickets?"+query, nil)
	return c
}

func TestNew(t *testing.T) {
	cases := []struct {
		query string
		want  Paginate
	}{
		{"", Paginate{From: 0, Size: 10, Page: 1}},
		{"page=3&page_size=5", Paginate{From: 10, Size: 5, Page: 3}},
		{"page=0&page_size=-1", Paginate{From: 0, Size: 10, Page: 1}},
		{"page=x&page_size=1000", Paginate{From: 0, Size: 100, Page: 1}},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, New(contextWithQuery(tc.query)), tc.query)
	}
}

func TestBounds(t *testing.T) {
	p := Paginate{From: 10, Size: 5, Page: 3}

	from, to := p.Bounds(12)
	assert.Equal(t, 10, from)
	assert.Equal(t, 12, to)

	from, to = p.Bounds(4)
	assert.Equal(t, 4, from)
	assert.Equal(t, 4, to)
}
