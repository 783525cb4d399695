package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/handlers"
	"task-workflow-api/internal/realtime"
	"task-workflow-api/internal/service"
	"task-workflow-api/internal/storage/sqlite"
	"task-workflow-api/internal/testutil"
)

func newRouter(t *testing.T, metrics http.Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	repo, err := sqlite.NewRepository(sqlite.RepositoryConfig{DB: db})
	require.NoError(t, err)
	svc, err := service.NewService(service.Config{Repo: repo})
	require.NoError(t, err)
	tokens, err := auth.NewTokens(auth.DefaultConfig())
	require.NoError(t, err)
	h, err := handlers.NewHandler(handlers.HandlerConfig{Service: svc, Tokens: tokens, Hub: realtime.NewHub(nil)})
	require.NoError(t, err)

	r, err := SetupRoutes(Config{Handler: h, Tokens: tokens, Metrics: metrics})
	require.NoError(t, err)
	return r
}

func TestSetupRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tasks_total 0\n"))
	})
	r := newRouter(t, metrics)

	tests := map[string]struct {
		method    string
		path      string
		expStatus int
	}{
		"Health should be public.": {
			method: http.MethodGet, path: "/health", expStatus: http.StatusOK,
		},
		"Metrics should be served when configured.": {
			method: http.MethodGet, path: "/metrics", expStatus: http.StatusOK,
		},
		"Task listing should require a token.": {
			method: http.MethodGet, path: "/api/tasks", expStatus: http.StatusUnauthorized,
		},
		"Manager-only routes should require a token first.": {
			method: http.MethodGet, path: "/api/extension-requests", expStatus: http.StatusUnauthorized,
		},
		"Preflight requests should be answered by CORS.": {
			method: http.MethodOptions, path: "/api/tasks", expStatus: http.StatusNoContent,
		},
		"Unknown routes should be not found.": {
			method: http.MethodGet, path: "/nope", expStatus: http.StatusNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(test.method, test.path, nil)
			req.Header.Set("Origin", "http://localhost:3000")
			r.ServeHTTP(w, req)
			require.Equal(t, test.expStatus, w.Code)
		})
	}
}

func TestMetricsRouteIsOptional(t *testing.T) {
	r := newRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutesConfig(t *testing.T) {
	tokens, err := auth.NewTokens(auth.DefaultConfig())
	require.NoError(t, err)

	tests := map[string]struct {
		cfg Config
	}{
		"Missing handler should fail.": {cfg: Config{Tokens: tokens}},
		"Missing tokens should fail.":  {cfg: Config{Handler: &handlers.Handler{}}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := SetupRoutes(test.cfg)
			require.Error(t, err)
		})
	}
}
