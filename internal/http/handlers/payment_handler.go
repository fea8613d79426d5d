package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

// PaymentHandler обслуживает маршруты платежей и агрегатов.
type PaymentHandler struct {
	payments *service.PaymentService
	ledger   *service.LedgerService
}

// NewPaymentHandler создаёт новый хэндлер.
func NewPaymentHandler(payments *service.PaymentService, ledger *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{payments: payments, ledger: ledger}
}

type createPaymentRequest struct {
	MilestoneID   string  `json:"milestone_id" binding:"required,uuid"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Method        string  `json:"method" binding:"required"`
	TransactionID *string `json:"transaction_id"`
}

// Create обрабатывает POST /api/payments.
// Платёж создаётся в статусе pending, дальше его судьбу решает
// подтверждение финансирования этапа.
func (h *PaymentHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req createPaymentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	milestoneID, err := uuid.Parse(req.MilestoneID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "milestone_id должен быть валидным UUID"})
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), milestoneID, userID, req.Amount, req.Method, req.TransactionID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// ListByMilestone обрабатывает GET /api/payments/milestone/:id.
func (h *PaymentHandler) ListByMilestone(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payments, err := h.payments.ListMilestonePayments(c.Request.Context(), milestoneID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ListUserPayments обрабатывает GET /api/payments/user.
func (h *PaymentHandler) ListUserPayments(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	payments, err := h.payments.ListUserPayments(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// Transactions обрабатывает GET /api/payments/transactions.
// Возвращает сводку по проектам: суммы, разбивка released/pending
// и время последней активности, отсортированные по свежести.
func (h *PaymentHandler) Transactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	aggregates, err := h.ledger.UserLedger(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, aggregates)
}
