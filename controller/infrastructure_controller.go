package controller

import (
	"dispatch-backend/services"
	"dispatch-backend/utils/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

type InfrastructureController struct {
	service services.InfrastructureServiceInterface
	logger  logger.Logger
}

func NewInfrastructureController(service services.InfrastructureServiceInterface, logger logger.Logger) *InfrastructureController {
	return &InfrastructureController{
		service: service,
		logger:  logger,
	}
}

// GetStatus handles GET /infrastructure/status.
// Responds 503 while provisioning is unfinished or the last health check failed.
func (h *InfrastructureController) GetStatus(c *gin.Context) {
	status, err := h.service.GetStatus(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "GetInfrastructureStatus", "", err)
		return
	}

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"success": status.Healthy,
		"message": status.Message,
		"data":    status,
	})
}

// GetTables handles GET /infrastructure/tables
func (h *InfrastructureController) GetTables(c *gin.Context) {
	tables, err := h.service.CheckTables(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "CheckTables", "", err)
		return
	}
	respond(c, http.StatusOK, "", tables)
}

// Health handles GET /health. The API is reported healthy even when the worker is not.
func (h *InfrastructureController) Health(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		workerHealthy, workerMessage := h.service.IsWorkerHealthy()
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
			"service": "Dispatch Backend",
			"worker": gin.H{
				"healthy": workerHealthy,
				"message": workerMessage,
			},
		})
	}
}
