package handlers

import (
	"net/http"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type exchangeRateRequest struct {
	FromCurrency string          `json:"from_currency" binding:"required"`
	ToCurrency   string          `json:"to_currency" binding:"required"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" binding:"required"`
	RateDate     *time.Time      `json:"rate_date"`
	Notes        string          `json:"notes"`
}

// CreateExchangeRateHandler registers a new rate for a pair. Documents keep
// the rate they froze at creation; only new lookups see the new rate.
func CreateExchangeRateHandler(c *gin.Context) {
	role, _ := utils.GetUserRoleFromContext(c.Request.Context())
	switch models.UserRole(role) {
	case models.UserRoleAdmin, models.UserRoleManager:
	default:
		respondError(c, utils.ErrorForbidden)
		return
	}

	var req exchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exchange_rate must be greater than zero"})
		return
	}
	rateDate := time.Now().UTC()
	if req.RateDate != nil {
		rateDate = req.RateDate.UTC()
	}

	exchange := &models.CurrencyExchange{
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		ExchangeRate: req.ExchangeRate,
		RateDate:     rateDate,
		Notes:        req.Notes,
	}
	created, err := models.CreateCurrencyExchange(c.Request.Context(), exchange)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func GetExchangeRateHandler(c *gin.Context) {
	from, to := c.Param("from"), c.Param("to")
	if !utils.IsValidCurrencyCode(from) || !utils.IsValidCurrencyCode(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency codes must be three uppercase letters"})
		return
	}
	rate, err := models.LatestExchangeRate(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"from_currency": from, "to_currency": to, "exchange_rate": rate})
}
