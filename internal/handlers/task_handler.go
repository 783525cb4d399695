package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/service"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
	Type        domain.Kind     `json:"type"`
	DueDate     string          `json:"dueDate"`
	AssigneeIDs []string        `json:"assigneeIds"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// Fields left out are not changed.
type UpdateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Priority    *domain.Priority `json:"priority"`
	DueDate     *string          `json:"dueDate"`
}

// AssignRequest lists the new assignees; the first one is primary.
type AssignRequest struct {
	UserIDs []string `json:"userIds" binding:"required"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type ProgressRequest struct {
	Percentage      *int   `json:"percentage" binding:"required"`
	Notes           string `json:"notes"`
	SubmitForReview bool   `json:"submitForReview"`
}

type ExtensionRequestPayload struct {
	RequestedDueDate string `json:"requestedDueDate" binding:"required"`
	Reason           string `json:"reason"`
}

type ReviewRequest struct {
	Accepted          bool   `json:"accepted"`
	Rating            *int   `json:"rating"`
	Feedback          string `json:"feedback"`
	SendBackForRework bool   `json:"sendBackForRework"`
}

type MoreInfoRequest struct {
	Message string `json:"message" binding:"required"`
}

// CreateTask handles POST /api/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cmd := service.CreateTask{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Kind:        req.Type,
		AssigneeIDs: req.AssigneeIDs,
	}
	if req.DueDate != "" {
		due, ok := parseDate(req.DueDate)
		if !ok {
			h.badRequest(c, "dueDate", "dueDate must be a date (2006-01-02) or an RFC3339 timestamp")
			return
		}
		cmd.DueDate = &due
	}
	h.dispatch(c, http.StatusCreated, cmd)
}

// UpdateTask handles PUT /api/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	var req UpdateTaskRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	cmd := service.UpdateTask{
		TaskID:      c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.DueDate != nil {
		due, ok := parseDate(*req.DueDate)
		if !ok {
			h.badRequest(c, "dueDate", "dueDate must be a date (2006-01-02) or an RFC3339 timestamp")
			return
		}
		cmd.DueDate = &due
	}
	h.dispatch(c, http.StatusOK, cmd)
}

// AssignTask handles POST /api/tasks/:id/assign
func (h *Handler) AssignTask(c *gin.Context) {
	var req AssignRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	h.dispatch(c, http.StatusOK, service.AssignTask{TaskID: c.Param("id"), UserIDs: req.UserIDs})
}

// ReassignTask handles POST /api/tasks/:id/reassign
func (h *Handler) ReassignTask(c *gin.Context) {
	var req AssignRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	h.dispatch(c, http.StatusOK, service.ReassignTask{TaskID: c.Param("id"), NewUserIDs: req.UserIDs})
}

// AcceptTask handles POST /api/tasks/:id/accept
func (h *Handler) AcceptTask(c *gin.Context) {
	h.dispatch(c, http.StatusOK, service.AcceptTask{TaskID: c.Param("id")})
}

// RejectTask handles POST /api/tasks/:id/reject
func (h *Handler) RejectTask(c *gin.Context) {
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	h.dispatch(c, http.StatusOK, service.RejectTask{TaskID: c.Param("id"), Reason: req.Reason})
}

// UpdateProgress handles POST /api/tasks/:id/progress
func (h *Handler) UpdateProgress(c *gin.Context) {
	var req ProgressRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	h.dispatch(c, http.StatusOK, service.UpdateTaskProgress{
		TaskID:          c.Param("id"),
		Percentage:      *req.Percentage,
		Notes:           req.Notes,
		SubmitForReview: req.SubmitForReview,
	})
}

// AcceptProgress handles POST /api/tasks/:id/progress/:entryId/accept
func (h *Handler) AcceptProgress(c *gin.Context) {
	h.dispatch(c, http.StatusOK, service.AcceptTaskProgress{TaskID: c.Param("id"), ProgressHistoryID: c.Param("entryId")})
}

// RejectProgress handles POST /api/tasks/:id/progress/:entryId/reject
func (h *Handler) RejectProgress(c *gin.Context) {
	h.dispatch(c, http.StatusOK, service.RejectTaskProgress{TaskID: c.Param("id"), ProgressHistoryID: c.Param("entryId")})
}

// RequestExtension handles POST /api/tasks/:id/extension-requests
func (h *Handler) RequestExtension(c *gin.Context) {
	var req ExtensionRequestPayload
	if !h.bindJSON(c, &req, false) {
		return
	}
	due, ok := parseDate(req.RequestedDueDate)
	if !ok {
		h.badRequest(c, "requestedDueDate", "requestedDueDate must be a date (2006-01-02) or an RFC3339 timestamp")
		return
	}
	h.dispatch(c, http.StatusCreated, service.RequestDeadlineExtension{
		TaskID:           c.Param("id"),
		RequestedDueDate: due,
		Reason:           req.Reason,
	})
}

// ApproveExtension handles POST /api/tasks/:id/extension-requests/:requestId/approve
func (h *Handler) ApproveExtension(c *gin.Context) {
	var req NotesRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	h.dispatch(c, http.StatusOK, service.ApproveExtensionRequest{TaskID: c.Param("id"), RequestID: c.Param("requestId"), Notes: req.Notes})
}

// RejectExtension handles POST /api/tasks/:id/extension-requests/:requestId/reject
func (h *Handler) RejectExtension(c *gin.Context) {
	var req NotesRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	h.dispatch(c, http.StatusOK, service.RejectExtensionRequest{TaskID: c.Param("id"), RequestID: c.Param("requestId"), Notes: req.Notes})
}

// MarkCompleted handles POST /api/tasks/:id/mark-completed
func (h *Handler) MarkCompleted(c *gin.Context) {
	h.dispatch(c, http.StatusOK, service.MarkTaskCompleted{TaskID: c.Param("id")})
}

// ReviewTask handles POST /api/tasks/:id/review
func (h *Handler) ReviewTask(c *gin.Context) {
	var req ReviewRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	h.dispatch(c, http.StatusOK, service.ReviewCompletedTask{
		TaskID:            c.Param("id"),
		Accepted:          req.Accepted,
		Rating:            req.Rating,
		Feedback:          req.Feedback,
		SendBackForRework: req.SendBackForRework,
	})
}

// CancelTask handles POST /api/tasks/:id/cancel
func (h *Handler) CancelTask(c *gin.Context) {
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	h.dispatch(c, http.StatusOK, service.CancelTask{TaskID: c.Param("id"), Reason: req.Reason})
}

// CompleteTask handles POST /api/tasks/:id/complete
func (h *Handler) CompleteTask(c *gin.Context) {
	h.dispatch(c, http.StatusOK, service.CompleteTask{TaskID: c.Param("id")})
}

// RequestMoreInfo handles POST /api/tasks/:id/request-info
func (h *Handler) RequestMoreInfo(c *gin.Context) {
	var req MoreInfoRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	h.dispatch(c, http.StatusOK, service.RequestMoreInfo{TaskID: c.Param("id"), Message: req.Message})
}

/*
GetTasks handles GET /api/tasks
Query params: page (default 1), limit (default 20, max 100), sort (asc|desc on
created_at, default desc), status (comma separated names or codes),
assignedTo, createdBy.
*/
func (h *Handler) GetTasks(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	q := service.ListTasksQuery{
		Page:       page,
		Limit:      limit,
		AssignedTo: c.Query("assignedTo"),
		CreatedBy:  c.Query("createdBy"),
		SortAsc:    strings.EqualFold(c.Query("sort"), "asc"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, v := range strings.Split(raw, ",") {
			st, err := domain.ParseStatus(v)
			if err != nil {
				h.renderError(c, err)
				return
			}
			q.Statuses = append(q.Statuses, st)
		}
	}

	result, err := h.svc.ListTasks(c.Request.Context(), actor, q)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTaskByID handles GET /api/tasks/:id
func (h *Handler) GetTaskByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	view, err := h.svc.GetTask(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetTaskActions handles GET /api/tasks/:id/actions
func (h *Handler) GetTaskActions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	actions, err := h.svc.AvailableActions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"taskId": c.Param("id"), "actions": actions})
}

// GetProgressHistory handles GET /api/tasks/:id/progress
func (h *Handler) GetProgressHistory(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	entries, err := h.svc.ProgressHistory(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// GetTaskHistory handles GET /api/tasks/:id/history
func (h *Handler) GetTaskHistory(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	entries, err := h.svc.TaskHistory(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries, "count": len(entries)})
}

// GetTaskExtensionRequests handles GET /api/tasks/:id/extension-requests
func (h *Handler) GetTaskExtensionRequests(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	reqs, err := h.svc.ExtensionRequests(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

// GetPendingExtensionRequests handles GET /api/extension-requests
func (h *Handler) GetPendingExtensionRequests(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	reqs, err := h.svc.PendingExtensionRequests(c.Request.Context(), actor)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}

// GetTasksByReminderLevel handles GET /api/tasks/reminders?level=
func (h *Handler) GetTasksByReminderLevel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	level, err := domain.ParseReminderLevel(c.DefaultQuery("level", domain.ReminderCritical.String()))
	if err != nil {
		h.renderError(c, err)
		return
	}
	tasks, err := h.svc.ListTasksByReminderLevel(c.Request.Context(), actor, level)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": level.String(), "tasks": tasks, "count": len(tasks)})
}

// GetDashboard handles GET /api/dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	stats, err := h.svc.DashboardStats(c.Request.Context(), actor)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "generatedAt": time.Now().UTC()})
}
