package handlers

import (
	"errors"
	"net/http"

	"controlling_irrigation/internal/sensor"

	"github.com/gin-gonic/gin"
)

// @Summary      Read sensors
// @Description  Live readings with cached fallback. Without 'channel' every configured channel is read.
// @Tags         telemetry
// @Produce      json
// @Param        channel  query     string  false  "Channel, e.g. moisture:5 or temperature"
// @Success      200      {object}  map[string]interface{}  "count, readings"
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Router       /api/v1/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	selector := c.Query("channel")
	readings, err := h.services.Telemetry.Read(c.Request.Context(), selector)
	if err != nil {
		code := http.StatusInternalServerError
		msg := "failed to read sensors"
		if errors.Is(err, sensor.ErrUnknownChannel) {
			code, msg = http.StatusBadRequest, err.Error()
		}
		h.logAndJSONError(c, code, msg, "telemetry_read_failed", err, "channel", selector)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(readings),
		"readings": readings,
	})
}
