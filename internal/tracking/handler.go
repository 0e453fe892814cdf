package tracking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/logger"
)

// Handler exposes tracking-event ingestion over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a tracking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the tracking endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/tracking")
	{
		events.POST("/device", h.RecordDevice)
		events.POST("/ip", h.RecordIP)
		events.POST("/location", h.RecordLocation)
	}
}

// RecordDevice handles POST /tracking/device
func (h *Handler) RecordDevice(c *gin.Context) {
	var req RecordDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.service.RecordDevice(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to record device event", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to record device event")
		return
	}
	common.SuccessResponseWithStatus(c, http.StatusCreated, event, "device event recorded")
}

// RecordIP handles POST /tracking/ip
func (h *Handler) RecordIP(c *gin.Context) {
	var req RecordIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.service.RecordIP(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to record ip event", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to record ip event")
		return
	}
	common.SuccessResponseWithStatus(c, http.StatusCreated, event, "ip event recorded")
}

// RecordLocation handles POST /tracking/location
func (h *Handler) RecordLocation(c *gin.Context) {
	var req RecordLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.service.RecordLocation(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to record location event", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to record location event")
		return
	}
	common.SuccessResponseWithStatus(c, http.StatusCreated, event, "location event recorded")
}
