package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type paymentRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	WithholdingPct decimal.Decimal `json:"withholding_pct"`
	Method         string          `json:"method"`
	ReferenceNo    string          `json:"reference_no"`
}

func RecordPaymentHandler(c *gin.Context) {
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil || (kind != models.KindPayable && kind != models.KindReceivable) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account kind must be payable or receivable"})
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := workflow.RecordPayment(c.Request.Context(), workflow.NewPayment{
		AccountKind:    kind,
		AccountId:      id,
		Amount:         req.Amount,
		WithholdingPct: req.WithholdingPct,
		Method:         models.PaymentMethod(req.Method),
		ReferenceNo:    req.ReferenceNo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func ListAccountPaymentsHandler(c *gin.Context) {
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil || (kind != models.KindPayable && kind != models.KindReceivable) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account kind must be payable or receivable"})
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	payments, err := models.GetAccountPayments(c.Request.Context(), kind, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
