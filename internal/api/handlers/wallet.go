package handlers

import (
	"net/http"

	"bvbit-exchange/internal/api/middleware"
	"bvbit-exchange/internal/service"
	"bvbit-exchange/pkg"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// WalletHandler обработчик для операций с кошельком
type WalletHandler struct {
	service *service.WalletService
	logger  *logrus.Logger
}

// NewWalletHandler создает новый обработчик кошелька
func NewWalletHandler(service *service.WalletService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{
		service: service,
		logger:  logger,
	}
}

// PaymentRequest запрос на пополнение или вывод средств
type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency" binding:"required"`
	Method        string          `json:"method" binding:"required"`
	WalletAddress string          `json:"wallet_address"`
}

// GetBalance возвращает баланс пользователя
// @Summary Get user balance
// @Description Get balance for all supported currencies
// @Tags wallet
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/balance [get]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balances, err := h.service.GetUserBalances(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balances})
}

// Deposit создает заявку на пополнение счета
// @Summary Deposit funds
// @Description Create a deposit payment; funds are credited after external confirmation
// @Tags wallet
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body PaymentRequest true "Deposit data"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/wallet/deposit [post]
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	payment, err := h.service.Deposit(c.Request.Context(), userID, pkg.NormalizeCurrency(req.Currency), req.Amount, req.Method, req.WalletAddress)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "Deposit created, awaiting confirmation",
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
}

// Withdraw создает заявку на вывод средств
// @Summary Withdraw funds
// @Description Reserve funds and create a withdrawal payment
// @Tags wallet
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body PaymentRequest true "Withdrawal data"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/wallet/withdraw [post]
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	payment, err := h.service.Withdraw(c.Request.Context(), userID, pkg.NormalizeCurrency(req.Currency), req.Amount, req.Method, req.WalletAddress)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	newBalances, err := h.service.GetUserBalances(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warnf("Failed to get updated balances: %v", err)
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":     "Withdrawal created, awaiting confirmation",
		"payment_id":  payment.ID,
		"status":      payment.Status,
		"new_balance": newBalances,
	})
}
