package reviews

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/pagination"
)

// Handler serves the revealed-review read surface and the moderator
// visibility override.
type Handler struct {
	repo ReviewRepository
}

// NewHandler creates a review handler.
func NewHandler(repo ReviewRepository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes mounts the review routes on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/:id/reviews", h.ListForUser)
	rg.PATCH("/reviews/:id/visibility", h.SetVisibility)
}

// ListForUser returns the visible reviews about a user, paginated.
func (h *Handler) ListForUser(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}

	params := pagination.ParseParams(c)
	items, total, err := h.repo.ListVisibleByTarget(c.Request.Context(), targetID, params.Limit, params.Offset)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to list reviews", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, items, meta)
}

// SetVisibility lets a moderator hide or restore a revealed review.
func (h *Handler) SetVisibility(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid review id")
		return
	}

	var req SetVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.SetVisibility(c.Request.Context(), reviewID, req.Visible); err != nil {
		if err == ErrNotFound {
			common.ErrorResponse(c, http.StatusNotFound, "review not found")
			return
		}
		logger.WithContext(c.Request.Context()).Error("failed to update review visibility", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update review")
		return
	}

	logger.WithContext(c.Request.Context()).Info("review visibility overridden",
		zap.String("review_id", reviewID.String()),
		zap.Bool("visible", req.Visible),
		zap.String("reason", req.Reason))
	common.SuccessResponse(c, gin.H{"review_id": reviewID, "visible": req.Visible})
}
