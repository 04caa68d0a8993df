package handlers

import (
	"net/http"

	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/gin-gonic/gin"
)

// CreateProjectHandler opens a new project. Creation is restricted to the
// roles that may also approve documents under it.
func CreateProjectHandler(c *gin.Context) {
	role, _ := utils.GetUserRoleFromContext(c.Request.Context())
	switch models.UserRole(role) {
	case models.UserRoleAdmin, models.UserRoleManager:
	default:
		respondError(c, utils.ErrorForbidden)
		return
	}

	var input models.NewProject
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, err := models.CreateProject(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}
