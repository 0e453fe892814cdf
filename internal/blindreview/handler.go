package blindreview

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/internal/transactions"
	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/middleware"
)

// Handler serves the concealed-review submission surface.
type Handler struct {
	service *Service
}

// NewHandler creates a blind-review handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the blind-review routes on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/transactions/:id/reviews", h.Submit)
	rg.GET("/transactions/:id/reviews/state", h.State)
}

// Submit accepts a concealed review for a transaction.
func (h *Handler) Submit(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req SubmitReviewRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	result, err := h.service.Submit(c.Request.Context(), transactionID, &req)
	if err != nil {
		var notEligible *ErrNotEligible
		switch {
		case errors.As(err, &notEligible):
			common.ErrorResponse(c, http.StatusForbidden, notEligible.Reason)
		case errors.Is(err, ErrAlreadySubmitted):
			common.ErrorResponse(c, http.StatusConflict, "review already submitted")
		case errors.Is(err, ErrTransactionBlocked):
			common.ErrorResponse(c, http.StatusForbidden, "transaction blocked pending moderation")
		case errors.Is(err, transactions.ErrNotFound):
			common.ErrorResponse(c, http.StatusNotFound, "transaction not found")
		default:
			logger.WithContext(c.Request.Context()).Error("review submission failed", zap.Error(err))
			common.ErrorResponse(c, http.StatusInternalServerError, "failed to submit review")
		}
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusCreated, result, "review concealed until reveal")
}

// State reports the reveal state of a transaction's review pair.
func (h *Handler) State(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction id")
		return
	}

	state, err := h.service.PairState(c.Request.Context(), transactionID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to load review state", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load review state")
		return
	}
	common.SuccessResponse(c, gin.H{"transaction_id": transactionID, "state": state})
}
