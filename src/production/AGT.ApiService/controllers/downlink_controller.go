package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	downlink "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Downlink"
	logger "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Logger"
)

// DownlinkController forwards command payloads to the network server.
type DownlinkController struct {
	client *downlink.Client
	logger *logger.Logger
}

// NewDownlinkController creates a new downlink controller.
func NewDownlinkController(client *downlink.Client, log *logger.Logger) *DownlinkController {
	return &DownlinkController{
		client: client,
		logger: log.WithComponent("downlink"),
	}
}

// RegisterRoutes registers the downlink route with Gin.
func (c *DownlinkController) RegisterRoutes(router *gin.Engine) {
	router.POST("/downlink/:deviceId", c.SendDownlink)
}

// SendDownlinkRequest is the request body for a downlink push.
type SendDownlinkRequest struct {
	FPort      uint8  `json:"f_port"`
	FrmPayload string `json:"frm_payload" binding:"required"`
}

// SendDownlink queues one downlink on the network server. No retry and no
// local persistence: the upstream command API owns delivery.
func (c *DownlinkController) SendDownlink(ctx *gin.Context) {
	deviceID := ctx.Param("deviceId")

	var req SendDownlinkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "frm_payload is required"})
		return
	}
	if req.FPort == 0 {
		req.FPort = 1
	}

	result, err := c.client.Push(ctx.Request.Context(), deviceID, req.FPort, req.FrmPayload)
	if err != nil {
		c.logger.WithField("device_id", deviceID).ErrorWithError(err, "downlink push failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}
