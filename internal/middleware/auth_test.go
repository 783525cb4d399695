package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/log"
	"task-workflow-api/internal/middleware"
)

func newTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(auth.Config{Secret: "test-secret", Issuer: "iss", Audience: "aud"})
	require.NoError(t, err)
	return tokens
}

func TestJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := newTokens(t)
	other, err := auth.NewTokens(auth.Config{Secret: "other-secret", Issuer: "iss", Audience: "aud"})
	require.NoError(t, err)

	good, err := tokens.GenerateToken(domain.User{ID: "emp-1", Email: "emma@example.com", Role: domain.RoleEmployee})
	require.NoError(t, err)
	forged, err := other.GenerateToken(domain.User{ID: "emp-1", Email: "emma@example.com", Role: domain.RoleEmployee})
	require.NoError(t, err)

	tests := map[string]struct {
		header    string
		query     string
		expStatus int
	}{
		"A bearer token should be accepted.": {
			header:    "Bearer " + good,
			expStatus: http.StatusOK,
		},
		"A token in the query should be accepted.": {
			query:     "?token=" + good,
			expStatus: http.StatusOK,
		},
		"A missing token should be refused.": {
			expStatus: http.StatusUnauthorized,
		},
		"A malformed header should be refused.": {
			header:    "Token " + good,
			expStatus: http.StatusUnauthorized,
		},
		"A token signed with another secret should be refused.": {
			header:    "Bearer " + forged,
			expStatus: http.StatusUnauthorized,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.JWTAuthMiddleware(tokens))
			r.GET("/protected", func(c *gin.Context) {
				actor, ok := middleware.ActorFrom(c)
				require.True(t, ok)
				assert.Equal(t, domain.Actor{UserID: "emp-1", Role: domain.RoleEmployee}, actor)
				assert.Equal(t, "emma@example.com", c.GetString(middleware.KeyEmail))
				assert.Equal(t, "emp-1", log.ValuesFromCtx(c.Request.Context())["user"])
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected"+test.query, nil)
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, test.expStatus, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := newTokens(t)

	tests := map[string]struct {
		role      domain.Role
		expStatus int
	}{
		"A manager should pass.":      {role: domain.RoleManager, expStatus: http.StatusOK},
		"An admin should pass.":       {role: domain.RoleAdmin, expStatus: http.StatusOK},
		"An employee should be kept.": {role: domain.RoleEmployee, expStatus: http.StatusForbidden},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			r := gin.New()
			r.Use(middleware.JWTAuthMiddleware(tokens), middleware.RequireRole(domain.RoleManager, domain.RoleAdmin))
			r.GET("/managers", func(c *gin.Context) { c.Status(http.StatusOK) })

			token, err := tokens.GenerateToken(domain.User{ID: "u-1", Email: "u@example.com", Role: test.role})
			require.NoError(err)
			req := httptest.NewRequest(http.MethodGet, "/managers", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(test.expStatus, w.Code)
		})
	}
}
