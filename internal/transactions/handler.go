package transactions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/middleware"
	"github.com/swapgrid/trust-engine/pkg/pagination"
)

// Handler serves the transaction lifecycle endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the transaction routes on a router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/transactions", h.Create)
	rg.GET("/transactions/:id", h.Get)
	rg.PATCH("/transactions/:id/status", h.UpdateStatus)
	rg.POST("/transactions/:id/confirm-location", h.ConfirmLocation)
	rg.GET("/users/:id/transactions", h.ListForUser)
}

// Create handles POST /transactions
func (h *Handler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	txn, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	common.SuccessResponseWithStatus(c, http.StatusCreated, txn, "transaction created")
}

// Get handles GET /transactions/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "transaction not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load transaction")
		return
	}
	common.SuccessResponse(c, txn)
}

// UpdateStatus handles PATCH /transactions/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req UpdateStatusRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	txn, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.ErrorResponse(c, http.StatusConflict, "transaction not found or already terminal")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update status")
		return
	}
	common.SuccessResponse(c, txn)
}

// ConfirmLocation handles POST /transactions/:id/confirm-location
func (h *Handler) ConfirmLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := h.service.ConfirmLocation(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "transaction not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to confirm location")
		return
	}
	common.SuccessResponse(c, gin.H{"location_confirmed": true})
}

// ListForUser handles GET /users/:id/transactions
func (h *Handler) ListForUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}

	params := pagination.ParseParams(c)
	txns, total, err := h.service.ListByUser(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	common.SuccessResponseWithMeta(c, txns, pagination.BuildMeta(params.Limit, params.Offset, total))
}
