package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/pkg/response"
)

type badgeService interface {
	Definitions() []models.Badge
	Definition(id string) (*models.Badge, error)
	StudentBadges(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.StudentBadges, error)
	CourseBadges(ctx context.Context, studentID, courseID string, actor *models.JWTClaims) ([]models.EarnedBadge, error)
}

// BadgeHandler exposes achievement badges.
type BadgeHandler struct {
	service badgeService
}

// NewBadgeHandler constructs BadgeHandler.
func NewBadgeHandler(svc badgeService) *BadgeHandler {
	return &BadgeHandler{service: svc}
}

// Definitions godoc
// @Summary List badge definitions
// @Tags Badges
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /badges/definitions [get]
func (h *BadgeHandler) Definitions(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Definitions(), nil)
}

// Definition godoc
// @Summary Get a badge definition
// @Tags Badges
// @Produce json
// @Param badgeId path string true "Badge ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /badges/definitions/{badgeId} [get]
func (h *BadgeHandler) Definition(c *gin.Context) {
	badge, err := h.service.Definition(c.Param("badgeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}

// Student godoc
// @Summary Badges of a student across courses
// @Tags Badges
// @Produce json
// @Param studentId path string true "Student user ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /badges/student/{studentId} [get]
func (h *BadgeHandler) Student(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.StudentBadges(c.Request.Context(), c.Param("studentId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Course godoc
// @Summary Badges of a student in one course
// @Tags Badges
// @Produce json
// @Param studentId path string true "Student user ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /badges/student/{studentId}/course/{courseId} [get]
func (h *BadgeHandler) Course(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	badges, err := h.service.CourseBadges(c.Request.Context(), c.Param("studentId"), c.Param("courseId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, nil)
}
