// Package handlers adapts the workflow service to gin. Handlers parse input,
// call the service and render either the result or the error envelope.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/log"
	"task-workflow-api/internal/middleware"
	"task-workflow-api/internal/realtime"
	"task-workflow-api/internal/service"
)

// HandlerConfig is the configuration for the HTTP handlers.
type HandlerConfig struct {
	Service *service.Service
	Tokens  *auth.Tokens
	Hub     *realtime.Hub
	Logger  log.Logger
}

func (c *HandlerConfig) defaults() error {
	if c.Service == nil {
		return fmt.Errorf("service is required")
	}
	if c.Tokens == nil {
		return fmt.Errorf("tokens are required")
	}
	if c.Hub == nil {
		return fmt.Errorf("hub is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "handlers.HTTP"})
	return nil
}

// Handler serves the task workflow API.
type Handler struct {
	svc    *service.Service
	tokens *auth.Tokens
	hub    *realtime.Hub
	logger log.Logger
}

// NewHandler returns the HTTP handlers.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Handler{svc: cfg.Service, tokens: cfg.Tokens, hub: cfg.Hub, logger: cfg.Logger}, nil
}

var statusByCode = map[service.ErrorCode]int{
	service.CodeValidation:         http.StatusBadRequest,
	service.CodeInvariantViolation: http.StatusConflict,
	service.CodeNotFound:           http.StatusNotFound,
	service.CodeForbidden:          http.StatusForbidden,
	service.CodeConflict:           http.StatusConflict,
}

// renderError writes the error envelope for err.
func (h *Handler) renderError(c *gin.Context, err error) {
	code := service.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
		h.logger.WithCtxValues(c.Request.Context()).Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
	}
	details := service.ErrorDetails(err)
	c.JSON(status, gin.H{
		"error":  details[0].Message,
		"errors": details,
	})
}

func (h *Handler) badRequest(c *gin.Context, field, message string) {
	h.renderError(c, domain.NewValidationError(field, message))
}

// actor returns the authenticated actor or renders 401.
func (h *Handler) actor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
	}
	return actor, ok
}

// bindJSON binds the request body into req. An empty body is fine when
// optional is set; the zero request is used.
func (h *Handler) bindJSON(c *gin.Context, req any, optional bool) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	h.badRequest(c, "body", "Invalid request body: "+err.Error())
	return false
}

// dispatch runs cmd for the authenticated actor and renders the result.
func (h *Handler) dispatch(c *gin.Context, status int, cmd service.Command) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	res, err := h.svc.Dispatch(c.Request.Context(), actor, cmd)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(status, res)
}

// parseDate accepts RFC3339 timestamps and plain dates. Plain dates are
// midnight UTC.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
