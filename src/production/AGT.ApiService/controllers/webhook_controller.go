package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.ApiService/implementation/ingest"
	logger "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Logger"
	agtmodels "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Models"
)

// SourceWebhook tags records ingested through the HTTP webhook.
const SourceWebhook = "ttn-webhook"

// WebhookController receives uplink callbacks from the network server.
type WebhookController struct {
	ingest *ingest.Service
	logger *logger.Logger
}

// NewWebhookController creates a new webhook controller.
func NewWebhookController(ingestService *ingest.Service, log *logger.Logger) *WebhookController {
	return &WebhookController{
		ingest: ingestService,
		logger: log.WithComponent("webhook"),
	}
}

// RegisterRoutes registers the webhook route with Gin.
func (c *WebhookController) RegisterRoutes(router *gin.Engine) {
	router.POST("/ttnWebhook", c.HandleUplink)
}

// HandleUplink ingests one uplink. A body without the data container is the
// only hard rejection; decode problems degrade into recorded error markers.
func (c *WebhookController) HandleUplink(ctx *gin.Context) {
	var env agtmodels.WebhookEnvelope
	if err := ctx.ShouldBindJSON(&env); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid TTN body"})
		return
	}

	res, err := c.ingest.Ingest(ctx.Request.Context(), &env, SourceWebhook)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidEnvelope) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid TTN body"})
			return
		}
		c.logger.ErrorWithError(err, "uplink ingestion failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "deviceId": res.DeviceID})
}
