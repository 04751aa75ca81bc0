package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
	"github.com/noah-isme/progress-tracker-api/pkg/response"
)

type reportService interface {
	StudentReport(ctx context.Context, studentID string, format models.ReportFormat, actor *models.JWTClaims) (*models.ReportFile, error)
	CourseReport(ctx context.Context, courseID string, format models.ReportFormat, actor *models.JWTClaims) (*models.ReportFile, error)
	ValidateStudent(ctx context.Context, studentID string) (*models.ReportValidation, error)
	ValidateCourse(ctx context.Context, courseID string) (*models.ReportValidation, error)
}

// ReportHandler exposes grade report downloads.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// StudentReport godoc
// @Summary Student grade report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student user ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/students/{studentId} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	h.download(c, func(ctx context.Context, format models.ReportFormat, actor *models.JWTClaims) (*models.ReportFile, error) {
		return h.service.StudentReport(ctx, c.Param("studentId"), format, actor)
	})
}

// CourseReport godoc
// @Summary Course grade report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/courses/{courseId} [get]
func (h *ReportHandler) CourseReport(c *gin.Context) {
	h.download(c, func(ctx context.Context, format models.ReportFormat, actor *models.JWTClaims) (*models.ReportFile, error) {
		return h.service.CourseReport(ctx, c.Param("courseId"), format, actor)
	})
}

// ValidateStudent godoc
// @Summary Check a student report has data
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student user ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/students/{studentId}/validate [get]
func (h *ReportHandler) ValidateStudent(c *gin.Context) {
	result, err := h.service.ValidateStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ValidateCourse godoc
// @Summary Check a course report has data
// @Tags Reports
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/courses/{courseId}/validate [get]
func (h *ReportHandler) ValidateCourse(c *gin.Context) {
	result, err := h.service.ValidateCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *ReportHandler) download(c *gin.Context, render func(context.Context, models.ReportFormat, *models.JWTClaims) (*models.ReportFile, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report query"))
		return
	}
	file, err := render(c.Request.Context(), query.Format, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
