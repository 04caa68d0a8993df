package handlers

import (
	"context"
	"net/http"

	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/gin-gonic/gin"
)

// GetEntityHandler returns one record of any registered kind. Item kinds are
// not addressable here; they are read through their owning document.
func GetEntityHandler(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var (
		result interface{}
		err    error
	)
	switch ref.Kind {
	case models.KindProject:
		result, err = models.GetProject(ctx, ref.ID)
	case models.KindEquipmentList:
		result, err = models.GetEquipmentList(ctx, ref.ID)
	case models.KindPurchaseRequest:
		result, err = models.GetPurchaseRequest(ctx, ref.ID)
	case models.KindPurchaseOrder:
		result, err = models.GetPurchaseOrder(ctx, ref.ID)
	case models.KindPendingReceipt:
		result, err = models.GetPendingReceipt(ctx, ref.ID)
	case models.KindPayable:
		result, err = models.GetPayable(ctx, ref.ID)
	case models.KindReceivable:
		result, err = models.GetReceivable(ctx, ref.ID)
	case models.KindValuation:
		result, err = models.GetValuation(ctx, ref.ID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": string(ref.Kind) + " is not directly addressable"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func listOf[T any](ctx context.Context, associations ...string) (interface{}, error) {
	return utils.FetchAllModels[T](ctx, associations...)
}

func ListEntitiesHandler(c *gin.Context) {
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	var result interface{}
	switch kind {
	case models.KindProject:
		result, err = listOf[models.Project](ctx)
	case models.KindEquipmentList:
		result, err = listOf[models.EquipmentList](ctx)
	case models.KindPurchaseRequest:
		result, err = listOf[models.PurchaseRequest](ctx)
	case models.KindPurchaseOrder:
		result, err = listOf[models.PurchaseOrder](ctx)
	case models.KindPendingReceipt:
		result, err = listOf[models.PendingReceipt](ctx)
	case models.KindPayable:
		result, err = listOf[models.Payable](ctx)
	case models.KindReceivable:
		result, err = listOf[models.Receivable](ctx)
	case models.KindValuation:
		result, err = listOf[models.Valuation](ctx)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": string(kind) + " is not directly addressable"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
