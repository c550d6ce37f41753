package handlers

import (
	"net/http"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/scheduler"
	"github.com/gin-gonic/gin"
)

// ValidateInput checks a scheduling request without solving it
func (h *Handler) ValidateInput(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	r, err := h.Service.Validate(&req.Dataset)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	if _, err := scheduler.ParseObjectiveForm(req.Objective); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	for _, d := range req.Days {
		if !r.HasDay(d) {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Unknown day: " + d})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"employee_count": len(r.Employees()),
			"role_count":     len(r.Roles()),
			"day_count":      len(r.Days()),
		},
	})
}
