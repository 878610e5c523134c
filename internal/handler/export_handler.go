package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadrecords/portal-api/internal/models"
	"github.com/acadrecords/portal-api/internal/service"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
	"github.com/acadrecords/portal-api/pkg/response"
)

// ExportHandler exposes mark sheet and claim report downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// MarkSheet godoc
// @Summary Export a course's grading sheet as CSV
// @Tags Exports
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/mark-sheet [post]
func (h *ExportHandler) MarkSheet(c *gin.Context) {
	result, err := h.exports.MarkSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClaimReport godoc
// @Summary Generate the claim resolution report as PDF
// @Tags Exports
// @Produce json
// @Param status query string false "Filter by claim status"
// @Success 200 {object} response.Envelope
// @Router /claims/report [post]
func (h *ExportHandler) ClaimReport(c *gin.Context) {
	var filter models.ClaimFilter
	filter.Status = models.ClaimStatus(c.Query("status"))
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleLecturer {
		filter.LecturerID = claims.UserID
	}
	result, err := h.exports.ClaimReport(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a generated export by signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token is required"))
		return
	}
	file, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat export"))
		return
	}
	c.FileAttachment(file.Name(), info.Name())
}
