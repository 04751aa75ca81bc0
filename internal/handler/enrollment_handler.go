package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/pkg/response"
)

type enrollmentService interface {
	RequestEnrollment(ctx context.Context, courseID string, actor *models.JWTClaims, req dto.RequestEnrollmentRequest) (*models.EnrollmentRequestDetail, error)
	Enroll(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.EnrollmentStatusView, error)
	Approve(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.EnrollmentRequestDetail, error)
	Reject(ctx context.Context, requestID string, actor *models.JWTClaims, req dto.RejectEnrollmentRequest) (*models.EnrollmentRequestDetail, error)
	Unenroll(ctx context.Context, courseID string, actor *models.JWTClaims, req dto.UnenrollRequest) error
	MarkCompleted(ctx context.Context, courseID string, actor *models.JWTClaims) error
	CancelRequest(ctx context.Context, requestID string, actor *models.JWTClaims) error
	Status(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.EnrollmentStatusView, error)
	ListCourseRequests(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.EnrollmentRequestDetail, error)
	ListInstructorPending(ctx context.Context, actor *models.JWTClaims) ([]models.EnrollmentRequestDetail, error)
	ListMyRequests(ctx context.Context, actor *models.JWTClaims) ([]models.EnrollmentRequestDetail, error)
	History(ctx context.Context, actor *models.JWTClaims) (*models.StudentHistory, error)
	Roster(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.RosterEntry, error)
}

// EnrollmentHandler exposes the enrollment workflow.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// RequestEnrollment godoc
// @Summary Request enrollment
// @Description Student asks to join a course; the instructor decides later
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body dto.RequestEnrollmentRequest false "Optional message"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/request-enrollment [post]
func (h *EnrollmentHandler) RequestEnrollment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RequestEnrollmentRequest
	if !bindOptionalJSON(c, &req, "invalid enrollment request payload") {
		return
	}
	detail, err := h.service.RequestEnrollment(c.Request.Context(), c.Param("courseId"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Enroll godoc
// @Summary Enroll directly
// @Tags Enrollment
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.Enroll(c.Request.Context(), c.Param("courseId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Status godoc
// @Summary Enrollment status for the caller
// @Tags Enrollment
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/enrollment-status [get]
func (h *EnrollmentHandler) Status(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), c.Param("courseId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// CourseRequests godoc
// @Summary Pending requests of a course
// @Tags Enrollment
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/enrollment-requests [get]
func (h *EnrollmentHandler) CourseRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.ListCourseRequests(c.Request.Context(), c.Param("courseId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Roster godoc
// @Summary Enrolled students
// @Tags Enrollment
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/students [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.Roster(c.Request.Context(), c.Param("courseId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Unenroll godoc
// @Summary Leave a course
// @Tags Enrollment
// @Accept json
// @Param courseId path string true "Course ID"
// @Param payload body dto.UnenrollRequest false "Optional reason"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/unenroll [post]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UnenrollRequest
	if !bindOptionalJSON(c, &req, "invalid unenroll payload") {
		return
	}
	if err := h.service.Unenroll(c.Request.Context(), c.Param("courseId"), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkCompleted godoc
// @Summary Mark a course completed
// @Tags Enrollment
// @Param courseId path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseId}/mark-completed [post]
func (h *EnrollmentHandler) MarkCompleted(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.MarkCompleted(c.Request.Context(), c.Param("courseId"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyRequests godoc
// @Summary The caller's enrollment requests
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment-requests/mine [get]
func (h *EnrollmentHandler) MyRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.ListMyRequests(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// PendingRequests godoc
// @Summary Pending requests across taught courses
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment-requests/pending [get]
func (h *EnrollmentHandler) PendingRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.ListInstructorPending(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Approve godoc
// @Summary Approve enrollment request
// @Tags Enrollment
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment-requests/{id}/approve [patch]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.service.Approve(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Reject godoc
// @Summary Reject enrollment request
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectEnrollmentRequest false "Optional reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment-requests/{id}/reject [patch]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RejectEnrollmentRequest
	if !bindOptionalJSON(c, &req, "invalid reject payload") {
		return
	}
	detail, err := h.service.Reject(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Cancel godoc
// @Summary Withdraw a pending request
// @Tags Enrollment
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment-requests/{id} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.CancelRequest(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Enrollment history of the caller
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/enrollment-history [get]
func (h *EnrollmentHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
