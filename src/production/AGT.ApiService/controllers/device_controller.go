package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	logger "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Logger"
	interfaces "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Repository/Interfaces"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// DeviceController exposes the canonical records to external readers
// (dashboards and the like). Read-only: ingestion is the sole writer.
type DeviceController struct {
	snapshots interfaces.SnapshotRepository
	history   interfaces.HistoryRepository
	logger    *logger.Logger
}

// NewDeviceController creates a new device controller.
func NewDeviceController(snapshots interfaces.SnapshotRepository, history interfaces.HistoryRepository, log *logger.Logger) *DeviceController {
	return &DeviceController{
		snapshots: snapshots,
		history:   history,
		logger:    log.WithComponent("devices"),
	}
}

// RegisterRoutes registers the device read routes with Gin.
func (c *DeviceController) RegisterRoutes(router *gin.Engine) {
	devices := router.Group("/devices")
	{
		devices.GET("", c.ListDevices)
		devices.GET("/:deviceId/state", c.GetState)
		devices.GET("/:deviceId/history", c.GetHistory)
	}
}

// ListDevices returns every device snapshot, most recently updated first.
func (c *DeviceController) ListDevices(ctx *gin.Context) {
	snaps, err := c.snapshots.ListSnapshots(ctx.Request.Context())
	if err != nil {
		c.logger.ErrorWithError(err, "failed to list snapshots")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"devices": snaps})
}

// GetState returns the latest snapshot for one device.
func (c *DeviceController) GetState(ctx *gin.Context) {
	deviceID := ctx.Param("deviceId")

	snap, err := c.snapshots.GetSnapshot(ctx.Request.Context(), deviceID)
	if err != nil {
		c.logger.WithField("device_id", deviceID).ErrorWithError(err, "failed to get snapshot")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if snap == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	ctx.JSON(http.StatusOK, snap)
}

// GetHistory returns the most recent history records for one device.
func (c *DeviceController) GetHistory(ctx *gin.Context) {
	deviceID := ctx.Param("deviceId")

	limit := int64(defaultHistoryLimit)
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if parsed > maxHistoryLimit {
			parsed = maxHistoryLimit
		}
		limit = parsed
	}

	recs, err := c.history.ListByDevice(ctx.Request.Context(), deviceID, limit)
	if err != nil {
		c.logger.WithField("device_id", deviceID).ErrorWithError(err, "failed to list history")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"deviceId": deviceID, "history": recs})
}
