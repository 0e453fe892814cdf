package reputation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/logger"
)

// Handler serves reputation scores and badge checks.
type Handler struct {
	service *Service
}

// NewHandler creates a reputation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the reputation routes on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:id/reputation", h.GetScore)
	rg.POST("/users/:id/reputation/recalculate", h.Recalculate)
	rg.GET("/users/:id/badges", h.GetBadges)
}

// GetScore returns a user's reputation, computing it on first request.
func (h *Handler) GetScore(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}

	score, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to load reputation", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load reputation")
		return
	}
	common.SuccessResponse(c, score)
}

// Recalculate forces a recompute for one user.
func (h *Handler) Recalculate(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}

	score, err := h.service.Recalculate(c.Request.Context(), userID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to recalculate reputation", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to recalculate reputation")
		return
	}
	common.SuccessResponse(c, score)
}

// GetBadges returns just the badge list from the stored score.
func (h *Handler) GetBadges(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}

	score, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to load badges", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load badges")
		return
	}
	common.SuccessResponse(c, gin.H{"user_id": userID, "badges": score.Badges})
}
