package handlers

import (
	"net/http"

	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/workflow"
	"github.com/gin-gonic/gin"
)

func RollbackCheckHandler(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}
	target := c.Query("target")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target query parameter is required"})
		return
	}
	check, err := workflow.CheckRollback(c.Request.Context(), ref.Kind, ref.ID, target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

type transitionRequest struct {
	Target string `json:"target" binding:"required"`
	Reason string `json:"reason"`
}

func RollbackHandler(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := workflow.Rollback(c.Request.Context(), ref.Kind, ref.ID, req.Target, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func TransitionHandler(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := workflow.Transition(c.Request.Context(), ref.Kind, ref.ID, req.Target, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func DeleteCheckHandler(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}
	check, err := workflow.CheckDelete(c.Request.Context(), ref.Kind, ref.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func DeleteHandler(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}
	if err := workflow.Delete(c.Request.Context(), ref.Kind, ref.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": ref})
}

type recalculateRequest struct {
	Kind string `json:"kind" binding:"required"`
	ID   int    `json:"id" binding:"required"`
}

func RecalculateHandler(c *gin.Context) {
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := models.ParseEntityKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	totals, err := workflow.Recalculate(c.Request.Context(), models.NewEntityRef(kind, req.ID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func TimelineHandler(c *gin.Context) {
	ref, ok := parseRef(c)
	if !ok {
		return
	}
	events, err := models.GetTimeline(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ref": ref, "events": events})
}
