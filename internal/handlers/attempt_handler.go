package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
	"github.com/prepdesk/exam-service/internal/services"
	"github.com/prepdesk/exam-service/internal/utils"
	"github.com/prepdesk/exam-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// CreateAttempt starts a new test attempt for the caller.
// Responds 409 with the existing attempt id when one is already open.
func (h *AttemptHandler) CreateAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting test attempt")

	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), req, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Attempt started successfully",
		Data:    attempt,
	})
}

// UpdateAttempt handles PATCH on an attempt: answer submission, completion,
// or both in one request. Answers are merged first, then the status change
// is applied.
func (h *AttemptHandler) UpdateAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating test attempt", "attempt_id", id)

	var req services.UpdateAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if req.Status != nil && *req.Status != models.AttemptCompleted {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Status can only transition to completed",
		})
		return
	}

	userID := h.getUserID(c)

	var attempt *services.AttemptResponse
	var err error

	if len(req.Answers) > 0 {
		attempt, err = h.attemptService.SubmitAnswers(c.Request.Context(), id, req.Answers, userID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
	}

	if req.Status != nil {
		attempt, err = h.attemptService.Complete(c.Request.Context(), id, userID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
	}

	if attempt == nil {
		// Nothing to do; return the current state
		attempt, err = h.attemptService.GetByID(c.Request.Context(), id, userID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt updated successfully",
		Data:    attempt,
	})
}

// GetAttempt returns one attempt owned by the caller.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), id, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt retrieved successfully",
		Data:    attempt,
	})
}

// GetCurrentAttempt returns the caller's in-progress attempt for a test.
func (h *AttemptHandler) GetCurrentAttempt(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}

	attempt, err := h.attemptService.GetCurrentAttempt(c.Request.Context(), testID, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Current attempt retrieved successfully",
		Data:    attempt,
	})
}

// ListAttempts lists the caller's attempts with optional filters.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	h.LogRequest(c, "Listing attempts")

	var query validator.ListAttemptsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}
	if errs := h.validator.Validate(query); errs.HasErrors() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: errs,
		})
		return
	}

	list, err := h.attemptService.ListByUser(c.Request.Context(), h.getUserID(c), attemptFilters(query))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempts retrieved successfully",
		Data:    list,
	})
}

func attemptFilters(query validator.ListAttemptsQuery) repositories.AttemptFilters {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.Size
	if size < 1 {
		size = 10
	}

	filters := repositories.AttemptFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
		DateFrom:  query.DateFrom,
		DateTo:    query.DateTo,
	}

	if status := strings.TrimSpace(query.Status); status != "" {
		attemptStatus := models.AttemptStatus(status)
		filters.Status = &attemptStatus
	}
	if query.TestID > 0 {
		testID := query.TestID
		filters.TestID = &testID
	}

	return filters
}
