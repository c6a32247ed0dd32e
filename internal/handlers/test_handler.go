package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepdesk/exam-service/internal/services"
	"github.com/prepdesk/exam-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

// GetTest returns test metadata.
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test retrieved successfully",
		Data:    test,
	})
}

// GetTestQuestions returns the ordered question set with answer keys
// stripped. Takers must never see the keys.
func (h *TestHandler) GetTestQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	questions, err := h.testService.GetQuestions(c.Request.Context(), id, false)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Questions retrieved successfully",
		Data:    questions,
	})
}
