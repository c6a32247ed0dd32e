package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepdesk/exam-service/internal/services"
	"github.com/prepdesk/exam-service/internal/utils"
	"github.com/prepdesk/exam-service/internal/validator"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	testHandler    *TestHandler
	reportHandler  *ReportHandler

	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		testHandler:    NewTestHandler(serviceManager.Test(), logger),
		reportHandler:  NewReportHandler(serviceManager.Report(), logger),
		serviceManager: serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.attemptHandler.CreateAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PATCH("/:id", hm.attemptHandler.UpdateAttempt)
		}

		tests := v1.Group("/tests")
		{
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/questions", hm.testHandler.GetTestQuestions)
			tests.GET("/:id/attempts/current", hm.attemptHandler.GetCurrentAttempt)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/tests/:id/attempts.xlsx", hm.reportHandler.ExportAttempts)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "exam-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
