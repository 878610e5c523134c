package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadrecords/portal-api/internal/models"
	"github.com/acadrecords/portal-api/internal/service"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
	"github.com/acadrecords/portal-api/pkg/response"
)

// ClaimHandler exposes the mark dispute endpoints.
type ClaimHandler struct {
	claims *service.ClaimService
}

// NewClaimHandler constructs ClaimHandler.
func NewClaimHandler(claims *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

// List godoc
// @Summary List claims
// @Tags Claims
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /claims [get]
func (h *ClaimHandler) List(c *gin.Context) {
	var filter models.ClaimFilter
	filter.Status = models.ClaimStatus(c.Query("status"))

	// Students see their own claims; lecturers see claims raised against
	// their courses; a head of department sees everything.
	if claims := claimsFromContext(c); claims != nil {
		switch claims.Role {
		case models.RoleStudent:
			filter.StudentID = claims.UserID
		case models.RoleLecturer:
			filter.LecturerID = claims.UserID
		}
	}

	result, err := h.claims.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Dispute a component of a published mark
// @Tags Claims
// @Accept json
// @Produce json
// @Param payload body service.SubmitClaimRequest true "Claim payload"
// @Success 201 {object} response.Envelope
// @Router /claims [post]
func (h *ClaimHandler) Submit(c *gin.Context) {
	var req service.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		req.StudentID = claims.UserID
	}
	claim, err := h.claims.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, claim)
}

// Resolve godoc
// @Summary Approve or reject a pending claim
// @Tags Claims
// @Accept json
// @Produce json
// @Param id path string true "Claim ID"
// @Param payload body service.ResolveClaimRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /claims/{id}/resolve [put]
func (h *ClaimHandler) Resolve(c *gin.Context) {
	var req service.ResolveClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claim, err := h.claims.Resolve(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claim, nil)
}
