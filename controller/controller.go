package controller

import (
	"dispatch-backend/metrics"
	"dispatch-backend/middelware"
	"dispatch-backend/models"
	"dispatch-backend/services"
	"dispatch-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Controller struct {
	Dispatch       *DispatchController
	Planning       *PlanningController
	Infrastructure *InfrastructureController

	auth     *middelware.JWTManager
	recorder metrics.Recorder
	gatherer prometheus.Gatherer
	config   *models.Config
	logger   logger.Logger
}

// NewController builds every handler from the service container. gatherer may be nil when metrics are disabled.
func NewController(cfg *models.Config, svc services.ServiceContainerInterface, recorder metrics.Recorder, gatherer prometheus.Gatherer, log logger.Logger) *Controller {
	return &Controller{
		Dispatch:       NewDispatchController(svc.GetDispatchService(), cfg, log),
		Planning:       NewPlanningController(svc.GetPlanningService(), log),
		Infrastructure: NewInfrastructureController(svc.GetInfrastructureService(), log),
		auth:           middelware.NewJWTManager(cfg, log),
		recorder:       recorder,
		gatherer:       gatherer,
		config:         cfg,
		logger:         log,
	}
}

// Router returns a gin engine with middleware and every route registered
func (c *Controller) Router() *gin.Engine {
	r := gin.New()
	logging := middelware.NewLoggingMiddleware(c.logger, "/health", "/metrics")
	r.Use(
		logging.Recovery(),
		logging.StructuredLogger(),
		middelware.NewCORSMiddleware(c.config.CORSOrigins).CORS(),
		metrics.Middleware(c.recorder),
	)
	if c.config.MaxUploadSizeMB > 0 {
		r.MaxMultipartMemory = c.config.MaxUploadSizeMB << 20
	}
	c.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API under the configured base path
func (c *Controller) RegisterRoutes(r *gin.Engine) {
	version := c.config.AppVersion
	if version == "" {
		version = "1.0.0"
	}
	r.GET("/health", c.Infrastructure.Health(version))
	if c.gatherer != nil {
		r.GET("/metrics", metrics.Handler(c.gatherer))
	}

	api := r.Group(c.config.BasePath, c.auth.AuthMiddleware())
	planners := c.auth.RequireRole(models.UserRoleDispatcher, models.UserRoleManager, models.UserRoleAdmin)
	approvers := c.auth.RequireRole(models.UserRoleManager, models.UserRoleAdmin)

	dispatches := api.Group("/dispatches")
	dispatches.POST("/from-job/:jobId", planners, c.Dispatch.CreateFromJob)
	dispatches.GET("", c.Dispatch.ListDispatches)
	dispatches.GET("/statistics", c.Dispatch.GetStatistics)
	dispatches.GET("/export", c.Dispatch.ExportDispatches)
	dispatches.GET("/:id", c.Dispatch.GetDispatch)
	dispatches.PUT("/:id", planners, c.Dispatch.UpdateDispatch)
	dispatches.DELETE("/:id", planners, c.Dispatch.DeleteDispatch)
	dispatches.PUT("/:id/status", c.Dispatch.UpdateStatus)
	dispatches.POST("/:id/start", c.Dispatch.StartDispatch)
	dispatches.POST("/:id/complete", c.Dispatch.CompleteDispatch)

	dispatches.POST("/:id/time-entries", c.Dispatch.AddTimeEntry)
	dispatches.POST("/:id/expenses", c.Dispatch.AddExpense)
	dispatches.POST("/:id/materials", c.Dispatch.AddMaterialUsage)
	dispatches.POST("/:id/notes", c.Dispatch.AddNote)
	dispatches.POST("/:id/attachments", c.Dispatch.AddAttachment)
	dispatches.POST("/:id/time-entries/:entryId/approve", approvers, c.Dispatch.ApproveTimeEntry)
	dispatches.POST("/:id/expenses/:expenseId/approve", approvers, c.Dispatch.ApproveExpense)
	dispatches.POST("/:id/materials/:materialId/approve", approvers, c.Dispatch.ApproveMaterial)

	planning := api.Group("/planning")
	planning.POST("/assign", planners, c.Planning.AssignJob)
	planning.POST("/batch-assign", planners, c.Planning.BatchAssign)
	planning.POST("/validate-assignment", c.Planning.ValidateAssignment)
	planning.GET("/unassigned-jobs", c.Planning.GetUnassignedJobs)
	planning.GET("/technician-schedule/:id", c.Planning.GetTechnicianSchedule)
	planning.GET("/technician-schedule/:id/export", c.Planning.ExportTechnicianSchedule)
	planning.GET("/available-technicians", c.Planning.GetAvailableTechnicians)

	infra := api.Group("/infrastructure", c.auth.RequireRole(models.UserRoleAdmin))
	infra.GET("/status", c.Infrastructure.GetStatus)
	infra.GET("/tables", c.Infrastructure.GetTables)
}
