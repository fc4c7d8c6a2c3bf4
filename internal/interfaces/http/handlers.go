package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/pm-status-review/internal/application/port"
	"github.com/garyjia/pm-status-review/internal/application/review"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/rules"
	"github.com/garyjia/pm-status-review/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	registry *review.Registry
	backend  port.TaskBackend
	health   HealthFunc
	timeout  time.Duration
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	registry *review.Registry,
	backend port.TaskBackend,
	health HealthFunc,
	timeout time.Duration,
	logger Logger,
) *Handlers {
	return &Handlers{
		registry: registry,
		backend:  backend,
		health:   health,
		timeout:  timeout,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Sessions   int         `json:"sessions"`
	Components interface{} `json:"components,omitempty"`
}

// SaveResponse is the body of a save request
type SaveResponse struct {
	Result  *review.SaveResult `json:"result,omitempty"`
	Session review.View        `json:"session"`
}

// SelectManagerRequest picks a manager, optionally with the mode to start
type SelectManagerRequest struct {
	ManagerID string      `json:"manager_id" binding:"required"`
	Mode      entity.Mode `json:"mode"`
}

// ModeRequest chooses the session mode
type ModeRequest struct {
	Mode entity.Mode `json:"mode" binding:"required"`
}

// FilterRequest changes the status filter
type FilterRequest struct {
	Filter string `json:"filter" binding:"required"`
}

// StatusRequest changes the project status of the task under review
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// FieldRequest writes one inline-editable field
type FieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// Version is reported by the health check
const Version = "1.0.0"

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		Sessions:  h.registry.Len(),
	}

	code := http.StatusOK
	if h.health != nil {
		healthy, details := h.health()
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, Response{
		Success: code == http.StatusOK,
		Data:    response,
	})
}

// ListManagers handles GET /api/managers
func (h *Handlers) ListManagers(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	managers, err := h.backend.GetManagerList(ctx)
	if err != nil {
		h.logger.Error("Failed to list managers", "error", err)
		c.JSON(http.StatusBadGateway, Response{
			Success: false,
			Error:   "failed to retrieve project managers",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    managers,
	})
}

// ListStatusOptions handles GET /api/status-options
func (h *Handlers) ListStatusOptions(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	opts, err := h.backend.GetStatusOptions(ctx, entity.ProjectStatusField)
	if err != nil {
		h.logger.Error("Failed to list status options", "error", err)
		c.JSON(http.StatusBadGateway, Response{
			Success: false,
			Error:   "failed to retrieve status options",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rules.FilterStatusOptions(opts),
	})
}

// CreateSession handles POST /api/sessions. The session is started before
// the response; a start failure is reported with the session in ERROR.
func (h *Handlers) CreateSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	s := h.registry.Create()
	h.logger.Info("Review session created", "session_id", s.ID())

	if err := s.Start(ctx); err != nil {
		h.respond(c, s, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    s.Snapshot(),
	})
}

// GetSession handles GET /api/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, s, nil)
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *Handlers) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Delete(id); err != nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	h.logger.Info("Review session deleted", "session_id", id)
	c.JSON(http.StatusOK, Response{Success: true})
}

// Retry handles POST /api/sessions/:id/retry
func (h *Handlers) Retry(c *gin.Context) {
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.Retry(ctx)
	})
}

// SelectManager handles POST /api/sessions/:id/manager. Without a mode the
// manager is only picked and the session waits for ChooseMode.
func (h *Handlers) SelectManager(c *gin.Context) {
	var req SelectManagerRequest
	if !h.bind(c, &req) {
		return
	}
	if err := utils.ValidateID(req.ManagerID); err != nil {
		h.badRequest(c, err)
		return
	}

	h.act(c, func(ctx context.Context, s *review.Session) error {
		if req.Mode == "" {
			return s.PickManager(ctx, req.ManagerID)
		}
		return s.SelectManager(ctx, req.ManagerID, req.Mode)
	})
}

// ChooseMode handles POST /api/sessions/:id/mode
func (h *Handlers) ChooseMode(c *gin.Context) {
	var req ModeRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.ChooseMode(ctx, req.Mode)
	})
}

// ChangeFilter handles POST /api/sessions/:id/filter
func (h *Handlers) ChangeFilter(c *gin.Context) {
	var req FilterRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.ChangeStatusFilter(ctx, req.Filter)
	})
}

// ChangeManager handles POST /api/sessions/:id/change-manager
func (h *Handlers) ChangeManager(c *gin.Context) {
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.ChangeManager(ctx)
	})
}

// DismissError handles POST /api/sessions/:id/dismiss-error
func (h *Handlers) DismissError(c *gin.Context) {
	h.act(c, func(_ context.Context, s *review.Session) error {
		s.DismissError()
		return nil
	})
}

// LoadTask handles POST /api/sessions/:id/tasks/:taskId
func (h *Handlers) LoadTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if err := utils.ValidateID(taskID); err != nil {
		h.badRequest(c, err)
		return
	}
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.LoadTaskDetail(ctx, taskID)
	})
}

// GoNext handles POST /api/sessions/:id/next
func (h *Handlers) GoNext(c *gin.Context) {
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.GoNext(ctx)
	})
}

// GoPrevious handles POST /api/sessions/:id/previous
func (h *Handlers) GoPrevious(c *gin.Context) {
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.GoPrevious(ctx)
	})
}

// Advance handles POST /api/sessions/:id/advance
func (h *Handlers) Advance(c *gin.Context) {
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.Advance(ctx)
	})
}

// ChangeStatus handles POST /api/sessions/:id/status
func (h *Handlers) ChangeStatus(c *gin.Context) {
	var req StatusRequest
	if !h.bind(c, &req) {
		return
	}
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.ChangeProjectStatus(ctx, req.Status)
	})
}

// UpdateDraft handles POST /api/sessions/:id/draft
func (h *Handlers) UpdateDraft(c *gin.Context) {
	var req review.DraftUpdate
	if !h.bind(c, &req) {
		return
	}
	if err := validateDraftUpdate(req); err != nil {
		h.badRequest(c, err)
		return
	}
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.UpdateDraft(ctx, req)
	})
}

// ConfirmDowngrade handles POST /api/sessions/:id/confirm-downgrade
func (h *Handlers) ConfirmDowngrade(c *gin.Context) {
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.ConfirmDowngrade(ctx)
	})
}

// DeclineDowngrade handles POST /api/sessions/:id/decline-downgrade
func (h *Handlers) DeclineDowngrade(c *gin.Context) {
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.DeclineDowngrade(ctx)
	})
}

// Save handles POST /api/sessions/:id/save
func (h *Handlers) Save(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := s.ValidateAndSave(ctx)
	if err != nil {
		h.fail(c, err, SaveResponse{Session: s.Snapshot()})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    SaveResponse{Result: result, Session: s.Snapshot()},
	})
}

// UpdateField handles PATCH /api/sessions/:id/field
func (h *Handlers) UpdateField(c *gin.Context) {
	var req FieldRequest
	if !h.bind(c, &req) {
		return
	}
	if err := utils.ValidateText(req.Field, req.Value); err != nil {
		h.badRequest(c, err)
		return
	}
	h.act(c, func(ctx context.Context, s *review.Session) error {
		return s.UpdateField(ctx, req.Field, req.Value)
	})
}

// act runs fn on the addressed session and responds with its view
func (h *Handlers) act(c *gin.Context, fn func(ctx context.Context, s *review.Session) error) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	h.respond(c, s, fn(ctx, s))
}

// session returns the session withSession resolved for the route
func (h *Handlers) session(c *gin.Context) (*review.Session, bool) {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*review.Session); ok {
			return s, true
		}
	}
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Error:   review.ErrSessionNotFound.Error(),
	})
	return nil, false
}

func (h *Handlers) respond(c *gin.Context, s *review.Session, err error) {
	if err != nil {
		h.fail(c, err, s.Snapshot())
		return
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    s.Snapshot(),
	})
}

// fail reports err with the session view so clients can render the state
// the failed action left behind
func (h *Handlers) fail(c *gin.Context, err error, data interface{}) {
	code, message := errorResponse(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("Session action failed",
			"session_id", c.Param("id"),
			"path", c.FullPath(),
			"error", err)
	}
	c.JSON(code, Response{
		Success: false,
		Data:    data,
		Error:   message,
	})
}

func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.badRequest(c, err)
		return false
	}
	return true
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "invalid request: " + err.Error(),
	})
}

func (h *Handlers) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// errorResponse maps session errors to a status code and message
func errorResponse(err error) (int, string) {
	var verr *rules.ValidationError
	var rerr *review.RequestError

	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Message
	case errors.As(err, &rerr):
		return http.StatusBadGateway, rerr.Message
	case errors.Is(err, review.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, review.ErrBusy),
		errors.Is(err, review.ErrFirstRecord),
		errors.Is(err, review.ErrLastRecord),
		errors.Is(err, review.ErrWrongPhase),
		errors.Is(err, review.ErrNotReviewing),
		errors.Is(err, review.ErrConfirmationPending),
		errors.Is(err, review.ErrNoConfirmation),
		errors.Is(err, review.ErrViewModeOnly):
		return http.StatusConflict, err.Error()
	case errors.Is(err, review.ErrNoManager),
		errors.Is(err, review.ErrInvalidMode),
		errors.Is(err, review.ErrInvalidFilter),
		errors.Is(err, review.ErrInvalidValue),
		errors.Is(err, review.ErrFieldNotEditable):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func validateDraftUpdate(u review.DraftUpdate) error {
	for _, d := range []*string{u.NextMeetingDate, u.SupportEndDate} {
		if d != nil {
			if err := utils.ValidateDate(*d); err != nil {
				return err
			}
		}
	}
	texts := map[string]*string{
		"next_steps":      u.NextSteps,
		"agenda":          u.Agenda,
		"risk_and_action": u.RiskAndAction,
		"reason":          u.Reason,
		"support_plan":    u.SupportPlan,
	}
	for field, v := range texts {
		if v != nil {
			if err := utils.ValidateText(field, *v); err != nil {
				return err
			}
		}
	}
	return nil
}
