package eligibility

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/pkg/common"
)

// Handler serves the standalone eligibility check, used by clients to show
// or hide the review form before any submission happens.
type Handler struct {
	checker *Checker
}

// NewHandler creates an eligibility handler.
func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

// RegisterRoutes mounts the eligibility route on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/transactions/:id/eligibility", h.Check)
}

// Check handles GET /transactions/:id/eligibility
func (h *Handler) Check(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction id")
		return
	}
	reviewerID, err := uuid.Parse(c.Query("reviewer_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid reviewer_id")
		return
	}
	targetID, err := uuid.Parse(c.Query("target_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid target_id")
		return
	}

	result, err := h.checker.CheckEligibility(c.Request.Context(), reviewerID, targetID, transactionID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "eligibility check failed")
		return
	}
	common.SuccessResponse(c, result)
}
