package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/pkg/response"
)

type statsService interface {
	SubmissionStats(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.SubmissionStats, error)
	Progress(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.StudentProgress, error)
	Trends(ctx context.Context, studentID, courseID string, actor *models.JWTClaims) (*models.ScoreTrend, error)
}

// StatsHandler exposes progress charts and submission counters.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Submissions godoc
// @Summary Submission counters of a course
// @Tags Stats
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /stats/submissions/{courseId} [get]
func (h *StatsHandler) Submissions(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims) (interface{}, error) {
		return h.service.SubmissionStats(ctx, c.Param("courseId"), actor)
	})
}

// Progress godoc
// @Summary Grade progress of a student
// @Tags Stats
// @Produce json
// @Param studentId path string true "Student user ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /stats/progress/{studentId} [get]
func (h *StatsHandler) Progress(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims) (interface{}, error) {
		return h.service.Progress(ctx, c.Param("studentId"), actor)
	})
}

// MyProgress godoc
// @Summary Grade progress of the caller
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stats/progress [get]
func (h *StatsHandler) MyProgress(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims) (interface{}, error) {
		return h.service.Progress(ctx, actor.UserID, actor)
	})
}

// Trends godoc
// @Summary Score trend of a student against the class
// @Tags Stats
// @Produce json
// @Param studentId path string true "Student user ID"
// @Param course_id query string false "Restrict to one course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stats/trends/{studentId} [get]
func (h *StatsHandler) Trends(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims) (interface{}, error) {
		return h.service.Trends(ctx, c.Param("studentId"), c.Query("course_id"), actor)
	})
}

func (h *StatsHandler) respond(c *gin.Context, fetch func(context.Context, *models.JWTClaims) (interface{}, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := fetch(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
