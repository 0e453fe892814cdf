package moderation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/pagination"
)

// Handler serves the moderation queue.
type Handler struct {
	service *Service
}

// NewHandler creates a moderation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the moderation routes on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/moderation/queue", h.ListOpen)
	rg.GET("/moderation/cases/:id", h.GetCase)
	rg.POST("/moderation/cases/:id/resolve", h.Resolve)
}

// ListOpen returns open cases, highest priority first.
func (h *Handler) ListOpen(c *gin.Context) {
	params := pagination.ParseParams(c)
	items, total, err := h.service.ListOpenCases(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to list moderation queue", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list moderation queue")
		return
	}
	common.SuccessResponseWithMeta(c, items, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetCase loads one case.
func (h *Handler) GetCase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid case id")
		return
	}

	item, err := h.service.GetCase(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "case not found")
			return
		}
		logger.WithContext(c.Request.Context()).Error("failed to load moderation case", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load case")
		return
	}
	common.SuccessResponse(c, item)
}

// Resolve closes a case.
func (h *Handler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid case id")
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ResolveCase(c.Request.Context(), id, &req); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "case not found or already resolved")
			return
		}
		logger.WithContext(c.Request.Context()).Error("failed to resolve moderation case", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve case")
		return
	}
	common.SuccessResponse(c, gin.H{"case_id": id, "status": StatusResolved})
}
