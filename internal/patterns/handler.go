package patterns

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/pagination"
)

// Handler exposes pattern listings for moderation evidence.
type Handler struct {
	service *Service
}

// NewHandler creates a patterns handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the pattern endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:id/patterns", h.ListUserPatterns)
}

// ListUserPatterns handles GET /users/:id/patterns
func (h *Handler) ListUserPatterns(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	params := pagination.ParseParams(c)
	found, total, err := h.service.ListUserPatterns(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to list patterns", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list patterns")
		return
	}

	common.SuccessResponseWithMeta(c, found, pagination.BuildMeta(params.Limit, params.Offset, total))
}
