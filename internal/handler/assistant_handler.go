package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/pkg/response"
)

type assistantService interface {
	List(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.CourseAssistantDetail, error)
	Assign(ctx context.Context, courseID string, req dto.AssignAssistantRequest, actor *models.JWTClaims) (*models.CourseAssistant, error)
	UpdatePermissions(ctx context.Context, courseID, userID string, patch models.AssistantPermissionsPatch, actor *models.JWTClaims) (*models.CourseAssistant, error)
	Remove(ctx context.Context, courseID, userID string, actor *models.JWTClaims) error
}

// AssistantHandler manages course assistants. :assistantId is the assistant's user id.
type AssistantHandler struct {
	service assistantService
}

// NewAssistantHandler constructs AssistantHandler.
func NewAssistantHandler(svc assistantService) *AssistantHandler {
	return &AssistantHandler{service: svc}
}

// List godoc
// @Summary List course assistants
// @Tags Assistants
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/assistants [get]
func (h *AssistantHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), c.Param("courseId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Assign godoc
// @Summary Assign course assistant
// @Tags Assistants
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body dto.AssignAssistantRequest true "Assistant"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/assistants [post]
func (h *AssistantHandler) Assign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignAssistantRequest
	if !bindJSON(c, &req, "invalid assistant payload") {
		return
	}
	assistant, err := h.service.Assign(c.Request.Context(), c.Param("courseId"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assistant)
}

// UpdatePermissions godoc
// @Summary Update assistant permissions
// @Tags Assistants
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param assistantId path string true "Assistant user ID"
// @Param payload body models.AssistantPermissionsPatch true "Permission patch"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/assistants/{assistantId}/permissions [patch]
func (h *AssistantHandler) UpdatePermissions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var patch models.AssistantPermissionsPatch
	if !bindJSON(c, &patch, "invalid permissions payload") {
		return
	}
	assistant, err := h.service.UpdatePermissions(c.Request.Context(), c.Param("courseId"), c.Param("assistantId"), patch, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assistant, nil)
}

// Remove godoc
// @Summary Remove course assistant
// @Tags Assistants
// @Param courseId path string true "Course ID"
// @Param assistantId path string true "Assistant user ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/assistants/{assistantId} [delete]
func (h *AssistantHandler) Remove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Remove(c.Request.Context(), c.Param("courseId"), c.Param("assistantId"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
