package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errTrigger         = "failed to start watering"
	errListWatering    = "failed to load watering history"
	errGetWatering     = "failed to load watering request"
	errReportStatus    = "failed to record outcome"
	errInvalidBodyPref = "invalid body: "
	errBusy            = "pump busy, try again later"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// statusFor maps the domain error taxonomy onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidPosition), errors.Is(err, models.ErrInvalidDuration):
		return http.StatusBadRequest
	case service.IsFilterError(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WateringRequest is the payload of POST /api/v1/watering.
type WateringRequest struct {
	// Planting position, 1..12 with the default wiring. Range checks are
	// left to the service so that 0 reports the typed error.
	Position int `json:"position" example:"5"`
	// Watering time in configured duration units
	Duration int `json:"duration" example:"2"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start watering
// @Description  Returns once the request is recorded as PENDING. The outcome is reported asynchronously.
// @Tags         watering
// @Accept       json
// @Produce      json
// @Param        body  body      WateringRequest  true  "Watering order"
// @Success      202   {object}  service.TriggerResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/watering [post]
// @Security     BearerAuth
func (h *Handler) triggerWatering(c *gin.Context) {
	var req WateringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	res, err := h.services.Trigger(c.Request.Context(), service.TriggerParams{
		Position: req.Position,
		Duration: req.Duration,
	})
	if err != nil {
		code := statusFor(err)
		msg := errTrigger
		switch code {
		case http.StatusBadRequest:
			msg = err.Error()
		case http.StatusConflict:
			msg = errBusy
		}
		h.logAndJSONError(c, code, msg, "watering_trigger_failed", err,
			"position", req.Position, "duration", req.Duration)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// @Summary      List watering requests
// @Tags         watering
// @Produce      json
// @Param        position  query     int     false  "Planting position"
// @Param        status    query     string  false  "Request status"  Enums(PENDING,RUNNING,SUCCEEDED,FAILED)
// @Param        from      query     string  false  "Created at or after (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to        query     string  false  "Created at or before. Date-only treated as end of day."
// @Param        limit     query     int     false  "Maximum rows"  default(100)
// @Success      200       {object}  map[string]interface{}  "count, requests"
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /api/v1/watering [get]
// @Security     BearerAuth
func (h *Handler) listWatering(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}

	var (
		position int
		limit    int
		err      error
	)
	if qs := c.Query("position"); qs != "" {
		if position, err = strconv.Atoi(qs); err != nil || position <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'position'"})
			return
		}
	}
	if qs := c.Query("limit"); qs != "" {
		if limit, err = strconv.Atoi(qs); err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit'"})
			return
		}
	}

	records, err := h.services.History.List(c.Request.Context(), service.HistoryFilter{
		Position: position,
		Status:   strings.TrimSpace(c.Query("status")),
		From:     from,
		To:       to,
		Limit:    limit,
	})
	if err != nil {
		code := statusFor(err)
		msg := errListWatering
		if code == http.StatusBadRequest {
			msg = err.Error()
		}
		h.logAndJSONError(c, code, msg, "watering_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(records),
		"requests": records,
	})
}

// @Summary      Get watering request
// @Tags         watering
// @Produce      json
// @Param        id   path      string  true  "Request id"
// @Success      200  {object}  models.WateringRecord
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/watering/{id} [get]
// @Security     BearerAuth
func (h *Handler) getWatering(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.services.History.Get(c.Request.Context(), id)
	if err != nil {
		code := statusFor(err)
		msg := errGetWatering
		if code == http.StatusNotFound {
			msg = "watering request not found"
		}
		h.logAndJSONError(c, code, msg, "watering_get_failed", err, "request_id", id)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary      Report a watering outcome
// @Description  Completion callback for out-of-process workers. Loopback callers only.
// @Tags         internal
// @Produce      json
// @Param        request_id  query     string  true   "Request id"
// @Param        success     query     bool    true   "Whether the run succeeded"
// @Param        error       query     string  false  "Failure reason"
// @Success      200         {object}  map[string]string
// @Failure      400         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Failure      500         {object}  map[string]string
// @Router       /internal/watering/status [post]
func (h *Handler) reportStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Query("request_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'request_id'"})
		return
	}
	succeeded, err := strconv.ParseBool(c.Query("success"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'success'; use true or false"})
		return
	}

	out := models.ActuationOutcome{
		RequestID: id,
		Succeeded: succeeded,
		Error:     c.Query("error"),
	}
	if err := h.services.History.ReportOutcome(c.Request.Context(), out); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errReportStatus, "watering_status_failed", err, "request_id", id)
		return
	}
	h.log.Infow("watering_status_received", "request_id", id, "succeeded", succeeded, "error", out.Error)
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
