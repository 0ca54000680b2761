package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.ApiService/health"
	logger "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Logger"
)

// HealthController reports service and storage health.
type HealthController struct {
	mongoClient *mongo.Client
	logger      *logger.Logger
}

// NewHealthController creates a new health controller.
func NewHealthController(mongoClient *mongo.Client, log *logger.Logger) *HealthController {
	return &HealthController{
		mongoClient: mongoClient,
		logger:      log.WithComponent("health"),
	}
}

// RegisterRoutes registers the health route with Gin.
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", c.Check)
}

// Check pings the storage layer and reports overall status.
func (c *HealthController) Check(ctx *gin.Context) {
	overall := "healthy"
	dbStatus := "connected"
	status := http.StatusOK

	if err := health.PingDatabase(ctx.Request.Context(), c.mongoClient); err != nil {
		c.logger.ErrorWithError(err, "database health check failed")
		overall = "unhealthy"
		dbStatus = "disconnected"
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": gin.H{
			"database": dbStatus,
		},
	})
}
