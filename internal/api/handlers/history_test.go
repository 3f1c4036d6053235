package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestQueryLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		query    string
		expected int
	}{
		{"default when absent", "", defaultHistoryLimit},
		{"default when not a number", "limit=abc", defaultHistoryLimit},
		{"default when non-positive", "limit=0", defaultHistoryLimit},
		{"explicit value", "limit=10", 10},
		{"clamped to maximum", "limit=1000000000", maxHistoryLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transactions?"+tc.query, nil)

			assert.Equal(t, tc.expected, queryLimit(c))
		})
	}
}
