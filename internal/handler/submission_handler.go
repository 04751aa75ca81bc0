package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/pkg/response"
)

type submissionService interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SubmissionDetail, error)
	ListByAssignment(ctx context.Context, assignmentID string, actor *models.JWTClaims) ([]models.SubmissionDetail, error)
	ListByCourse(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.SubmissionDetail, error)
	ListByStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.SubmissionDetail, error)
	Grade(ctx context.Context, id string, req models.GradeSubmissionRequest, actor *models.JWTClaims) (*models.SubmissionDetail, error)
}

// SubmissionHandler exposes submission reads and grading.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs SubmissionHandler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Grade godoc
// @Summary Grade submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.GradeSubmissionRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.GradeSubmissionRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	detail, err := h.service.Grade(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListByAssignment godoc
// @Summary Submissions of an assignment
// @Tags Submissions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions [get]
func (h *SubmissionHandler) ListByAssignment(c *gin.Context) {
	h.list(c, func(ctx context.Context, actor *models.JWTClaims) ([]models.SubmissionDetail, error) {
		return h.service.ListByAssignment(ctx, c.Param("id"), actor)
	})
}

// ListByCourse godoc
// @Summary Submissions across a course
// @Tags Submissions
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/course/{courseId} [get]
func (h *SubmissionHandler) ListByCourse(c *gin.Context) {
	h.list(c, func(ctx context.Context, actor *models.JWTClaims) ([]models.SubmissionDetail, error) {
		return h.service.ListByCourse(ctx, c.Param("courseId"), actor)
	})
}

// ListByStudent godoc
// @Summary Submissions of a student
// @Tags Submissions
// @Produce json
// @Param studentId path string true "Student user ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/student/{studentId} [get]
func (h *SubmissionHandler) ListByStudent(c *gin.Context) {
	h.list(c, func(ctx context.Context, actor *models.JWTClaims) ([]models.SubmissionDetail, error) {
		return h.service.ListByStudent(ctx, c.Param("studentId"), actor)
	})
}

func (h *SubmissionHandler) list(c *gin.Context, fetch func(context.Context, *models.JWTClaims) ([]models.SubmissionDetail, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := fetch(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
