package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadrecords/portal-api/internal/service"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
	"github.com/acadrecords/portal-api/pkg/response"
)

// SheetHandler exposes the module assignment sheet endpoints.
type SheetHandler struct {
	sheets *service.SheetService
}

// NewSheetHandler constructs SheetHandler.
func NewSheetHandler(sheets *service.SheetService) *SheetHandler {
	return &SheetHandler{sheets: sheets}
}

// ListByStudent godoc
// @Summary List a student's module sheet
// @Tags Sheets
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/sheet [get]
func (h *SheetHandler) ListByStudent(c *gin.Context) {
	entries, err := h.sheets.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Assign godoc
// @Summary Assign a module to a student's sheet
// @Tags Sheets
// @Accept json
// @Produce json
// @Param payload body service.AssignModuleRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sheets [post]
func (h *SheetHandler) Assign(c *gin.Context) {
	var req service.AssignModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.sheets.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Remove godoc
// @Summary Remove a sheet entry
// @Tags Sheets
// @Produce json
// @Param id path string true "Assignment ID"
// @Param studentId query string false "Owning student, refreshes eligibility when set"
// @Success 204 {object} response.Envelope
// @Router /sheets/{id} [delete]
func (h *SheetHandler) Remove(c *gin.Context) {
	if err := h.sheets.Remove(c.Request.Context(), c.Param("id"), c.Query("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
