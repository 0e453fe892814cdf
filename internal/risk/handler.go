package risk

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/transactions"
	"github.com/swapgrid/trust-engine/pkg/common"
)

// Handler serves the transaction risk endpoint.
type Handler struct {
	service *Service
	txns    transactions.TransactionRepository
}

// NewHandler creates a risk handler.
func NewHandler(service *Service, txns transactions.TransactionRepository) *Handler {
	return &Handler{service: service, txns: txns}
}

// RegisterRoutes mounts the risk routes on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/transactions/:id/risk", h.AnalyzeTransaction)
}

// AnalyzeTransaction runs the aggregator for a transaction's two parties.
func (h *Handler) AnalyzeTransaction(c *gin.Context) {
	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.txns.GetByID(c.Request.Context(), transactionID)
	if err != nil {
		if err == transactions.ErrNotFound {
			common.ErrorResponse(c, http.StatusNotFound, "transaction not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load transaction")
		return
	}

	report, err := h.service.AnalyzeTransactionRisk(c.Request.Context(), txn.ID, txn.PartyA, txn.PartyB)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "risk analysis failed")
		return
	}
	common.SuccessResponse(c, report)
}
