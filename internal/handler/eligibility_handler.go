package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadrecords/portal-api/internal/service"
	"github.com/acadrecords/portal-api/pkg/response"
)

// EligibilityHandler exposes the joinable-course resolver.
type EligibilityHandler struct {
	eligibility *service.EligibilityService
}

// NewEligibilityHandler constructs EligibilityHandler.
func NewEligibilityHandler(eligibility *service.EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibility: eligibility}
}

// EligibleCourses godoc
// @Summary Courses a student may join
// @Tags Eligibility
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/eligible-courses [get]
func (h *EligibilityHandler) EligibleCourses(c *gin.Context) {
	courses, err := h.eligibility.EligibleCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
