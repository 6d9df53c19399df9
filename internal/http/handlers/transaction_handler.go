package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/dto"
	"github.com/secondhand/marketplace-backend/internal/http/handlers/common"
	"github.com/secondhand/marketplace-backend/internal/http/response"
	"github.com/secondhand/marketplace-backend/internal/models"
)

// TransactionUseCase операции над покупками и предложениями пользователя.
type TransactionUseCase interface {
	ListPurchases(ctx context.Context, userID int64, limit, offset int) ([]models.Purchase, error)
	ListSentOffers(ctx context.Context, userID int64, limit, offset int) ([]models.SentOffer, error)
	ListReceivedOffers(ctx context.Context, userID int64, limit, offset int) ([]models.ReceivedOffer, error)
	CompleteTransaction(ctx context.Context, transactionID, requesterID int64) (*models.Transaction, error)
}

// TransactionHandler обслуживает раздел "мои сделки".
type TransactionHandler struct {
	transactions TransactionUseCase
}

// NewTransactionHandler создаёт хэндлер.
func NewTransactionHandler(transactions TransactionUseCase) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// Purchases обрабатывает GET /api/transactions/purchases.
func (h *TransactionHandler) Purchases(c *gin.Context) {
	listForUser(c, h.transactions.ListPurchases)
}

// SentOffers обрабатывает GET /api/transactions/sent-offers.
func (h *TransactionHandler) SentOffers(c *gin.Context) {
	listForUser(c, h.transactions.ListSentOffers)
}

// ReceivedOffers обрабатывает GET /api/transactions/received-offers.
func (h *TransactionHandler) ReceivedOffers(c *gin.Context) {
	listForUser(c, h.transactions.ListReceivedOffers)
}

// Complete обрабатывает POST /api/transactions/:transactionId/complete.
func (h *TransactionHandler) Complete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	transactionID, err := common.ParseIDParam(c, "transactionId")
	if err != nil {
		response.BadRequest(c, "Invalid transaction id")
		return
	}

	transaction, err := h.transactions.CompleteTransaction(c.Request.Context(), transactionID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "Transaction completed", transaction)
}

func listForUser[T any](c *gin.Context, list func(ctx context.Context, userID int64, limit, offset int) ([]T, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "")
		return
	}

	var page dto.PaginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, "Invalid pagination parameters")
		return
	}
	limit, offset := page.Normalize()

	items, err := list(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, items)
}
