package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"task-workflow-api/internal/log"
	"task-workflow-api/internal/middleware"
)

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID(), middleware.RequestLogger(log.Noop))
	var seen any
	r.GET("/ping", func(c *gin.Context) {
		seen = log.ValuesFromCtx(c.Request.Context())["correlation_id"]
		c.Status(http.StatusOK)
	})

	t.Run("A caller id should be kept.", func(t *testing.T) {
		require := require.New(t)
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.CorrelationHeader, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal("abc-123", w.Header().Get(middleware.CorrelationHeader))
		require.Equal("abc-123", seen)
	})

	t.Run("A missing id should be generated.", func(t *testing.T) {
		require := require.New(t)
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		id := w.Header().Get(middleware.CorrelationHeader)
		require.Len(id, 36)
		require.Equal(id, seen)
	})
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := map[string]struct {
		allowed   []string
		method    string
		origin    string
		expStatus int
		expOrigin string
	}{
		"A preflight should stop with no content.": {
			allowed:   []string{"*"},
			method:    http.MethodOptions,
			origin:    "http://app.example.com",
			expStatus: http.StatusNoContent,
			expOrigin: "*",
		},
		"A listed origin should be echoed.": {
			allowed:   []string{"http://app.example.com"},
			method:    http.MethodGet,
			origin:    "http://app.example.com",
			expStatus: http.StatusOK,
			expOrigin: "http://app.example.com",
		},
		"An unlisted origin should get no allow header.": {
			allowed:   []string{"http://app.example.com"},
			method:    http.MethodGet,
			origin:    "http://evil.example.com",
			expStatus: http.StatusOK,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			r := gin.New()
			r.Use(middleware.CORS(test.allowed))
			r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(test.method, "/ping", nil)
			req.Header.Set("Origin", test.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(test.expStatus, w.Code)
			require.Equal(test.expOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
