package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/gin-gonic/gin"
)

var logger = config.GetLogger()

// parseRef reads the :kind/:id path pair shared by most routes.
func parseRef(c *gin.Context) (models.EntityRef, bool) {
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.EntityRef{}, false
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return models.EntityRef{}, false
	}
	return models.NewEntityRef(kind, id), true
}

// respondError maps the engine's error taxonomy onto HTTP statuses. Conflicts
// carry their blocker list so the caller can remediate.
func respondError(c *gin.Context, err error) {
	if conflict, ok := utils.AsConflictError(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"error":    conflict.Error(),
			"blockers": conflict.Blockers,
		})
		return
	}
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorInvalidTransition),
		errors.Is(err, utils.ErrorInvalidAmount),
		errors.Is(err, utils.ErrorOverpayment),
		errors.Is(err, utils.ErrorAccountTerminal):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(logger, "handlers", "respondError", c.Request.URL.Path,
			map[string]interface{}{"correlation_id": correlationId}, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
