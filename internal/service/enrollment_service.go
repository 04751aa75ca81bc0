package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	LockByIDWithTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Course, error)
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
	CountEnrolledWithTx(ctx context.Context, tx *sqlx.Tx, courseID string) (int, error)
	AddStudentWithTx(ctx context.Context, tx *sqlx.Tx, courseID, studentID string) (bool, error)
	RemoveStudentWithTx(ctx context.Context, tx *sqlx.Tx, courseID, studentID string) (bool, error)
	ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type enrollmentRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	FindDetail(ctx context.Context, id string) (*models.EnrollmentRequestDetail, error)
	FindPending(ctx context.Context, studentID, courseID string) (*models.EnrollmentRequest, error)
	FindPendingWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (*models.EnrollmentRequest, error)
	Create(ctx context.Context, req *models.EnrollmentRequest) error
	Resolve(ctx context.Context, req *models.EnrollmentRequest) error
	ResolveWithTx(ctx context.Context, tx *sqlx.Tx, req *models.EnrollmentRequest) error
	DeletePending(ctx context.Context, id string) error
	List(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, error)
}

type studentRecordRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentRecord, error)
	EnsureWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) (*models.StudentRecord, error)
	GetEnrollment(ctx context.Context, recordID, courseID string) (*models.StudentEnrollment, error)
	GetEnrollmentWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) (*models.StudentEnrollment, error)
	UpsertEnrollmentWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string, status models.EnrollmentStatus) error
	AppendHistoryWithTx(ctx context.Context, tx *sqlx.Tx, entry *models.EnrollmentHistoryEntry) error
	LatestEnrolledAtWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) (*time.Time, error)
	ListEnrollments(ctx context.Context, recordID string) ([]models.StudentEnrollment, error)
	ListHistory(ctx context.Context, recordID string) ([]models.EnrollmentHistoryDetail, error)
}

// EnrollmentConfig toggles enrollment behaviours.
type EnrollmentConfig struct {
	// ResolvePendingOnDirectEnroll marks a pending request "enrolled" when
	// the student joins the course directly.
	ResolvePendingOnDirectEnroll bool
	EnforceCapacityOnApproval    bool
}

// EnrollmentService runs the request/approve/enroll/unenroll workflow and
// keeps the course roster and the student's record in step.
type EnrollmentService struct {
	tx        txProvider
	courses   enrollmentCourseRepository
	requests  enrollmentRequestRepository
	records   studentRecordRepository
	users     userReader
	access    *CourseAccess
	metrics   *MetricsService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    EnrollmentConfig
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	tx txProvider,
	courses enrollmentCourseRepository,
	requests enrollmentRequestRepository,
	records studentRecordRepository,
	users userReader,
	access *CourseAccess,
	metrics *MetricsService,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
	config EnrollmentConfig,
) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		tx:        tx,
		courses:   courses,
		requests:  requests,
		records:   records,
		users:     users,
		access:    access,
		metrics:   metrics,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RequestEnrollment files a pending request for instructor approval.
func (s *EnrollmentService) RequestEnrollment(ctx context.Context, courseID string, actor *models.JWTClaims, req dto.RequestEnrollmentRequest) (*models.EnrollmentRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment request payload")
	}
	course, err := s.checkJoinable(ctx, courseID, actor)
	if err != nil {
		return nil, err
	}

	if _, err := s.requests.FindPending(ctx, actor.UserID, course.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRequest, "Enrollment request already pending")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check pending requests")
	}

	request := &models.EnrollmentRequest{
		StudentID: actor.UserID,
		CourseID:  course.ID,
		Message:   optionalString(req.Message),
	}
	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRequest, "Enrollment request already pending")
		}
		return nil, internalError(err, "failed to create enrollment request")
	}

	s.metrics.RecordTransition(TransitionRequested)
	s.logger.Info("enrollment requested", zap.String("request_id", request.ID), zap.String("course_id", course.ID), zap.String("student_id", actor.UserID))
	return s.detail(ctx, request.ID)
}

// Enroll adds the student to the roster immediately.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.EnrollmentStatusView, error) {
	course, err := s.checkJoinable(ctx, courseID, actor)
	if err != nil {
		return nil, err
	}
	student, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		locked, err := s.courses.LockByIDWithTx(ctx, tx, course.ID)
		if err != nil {
			return internalError(err, "failed to lock course")
		}
		if locked.Archived {
			return appErrors.Clone(appErrors.ErrCourseArchived, "Cannot enroll in archived course")
		}
		count, err := s.courses.CountEnrolledWithTx(ctx, tx, course.ID)
		if err != nil {
			return internalError(err, "failed to count roster")
		}
		if count >= locked.Capacity {
			return appErrors.Clone(appErrors.ErrCourseFull, "Course is full")
		}
		added, err := s.courses.AddStudentWithTx(ctx, tx, course.ID, student.ID)
		if err != nil {
			return internalError(err, "failed to add student to course")
		}
		if !added {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "Already enrolled")
		}
		if err := s.recordEnrolled(ctx, tx, student, course.ID); err != nil {
			return err
		}
		if s.config.ResolvePendingOnDirectEnroll {
			return s.resolvePendingWithTx(ctx, tx, student.ID, course.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(TransitionEnrolled)
	s.invalidateCatalog(ctx)
	s.logger.Info("student enrolled", zap.String("course_id", course.ID), zap.String("student_id", student.ID))
	return &models.EnrollmentStatusView{CourseID: course.ID, Enrolled: true, EnrollmentStatus: models.EnrollmentStatusEnrolled}, nil
}

// Approve accepts a pending request and enrolls the student.
func (s *EnrollmentService) Approve(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.EnrollmentRequestDetail, error) {
	request, course, err := s.loadProcessable(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	student, err := s.loadUser(ctx, request.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotCompleted(ctx, student.ID, course.ID); err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		locked, err := s.courses.LockByIDWithTx(ctx, tx, course.ID)
		if err != nil {
			return internalError(err, "failed to lock course")
		}
		count, err := s.courses.CountEnrolledWithTx(ctx, tx, course.ID)
		if err != nil {
			return internalError(err, "failed to count roster")
		}
		added, err := s.courses.AddStudentWithTx(ctx, tx, course.ID, student.ID)
		if err != nil {
			return internalError(err, "failed to add student to course")
		}

		status := models.RequestStatusEnrolled
		if added {
			if s.config.EnforceCapacityOnApproval && count >= locked.Capacity {
				return appErrors.Clone(appErrors.ErrCourseFull, "Course is full")
			}
			if err := s.recordEnrolled(ctx, tx, student, course.ID); err != nil {
				return err
			}
			status = models.RequestStatusApproved
		}
		return s.resolveWithTx(ctx, tx, request, status, actor.UserID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(TransitionApproved)
	s.invalidateCatalog(ctx)
	s.logger.Info("enrollment approved", zap.String("request_id", request.ID), zap.String("status", string(request.Status)), zap.String("actor_id", actor.UserID))
	return s.detail(ctx, request.ID)
}

// Reject declines a pending request. Only the request row changes.
func (s *EnrollmentService) Reject(ctx context.Context, requestID string, actor *models.JWTClaims, req dto.RejectEnrollmentRequest) (*models.EnrollmentRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}
	request, _, err := s.loadProcessable(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	request.Status = models.RequestStatusRejected
	request.RejectionReason = optionalString(req.RejectionReason)
	request.ProcessedAt = &now
	request.ProcessedBy = &actor.UserID
	if err := s.requests.Resolve(ctx, request); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "Request already processed")
		}
		return nil, internalError(err, "failed to reject enrollment request")
	}

	s.metrics.RecordTransition(TransitionRejected)
	s.logger.Info("enrollment rejected", zap.String("request_id", request.ID), zap.String("actor_id", actor.UserID))
	return s.detail(ctx, request.ID)
}

// Unenroll removes the student from the roster and records the drop.
// History, submissions and grades are kept.
func (s *EnrollmentService) Unenroll(ctx context.Context, courseID string, actor *models.JWTClaims, req dto.UnenrollRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unenroll payload")
	}
	if err := s.leave(ctx, courseID, actor, models.EnrollmentStatusDropped, optionalString(req.Reason)); err != nil {
		return err
	}
	s.metrics.RecordTransition(TransitionDropped)
	return nil
}

// MarkCompleted closes the student's membership as completed.
func (s *EnrollmentService) MarkCompleted(ctx context.Context, courseID string, actor *models.JWTClaims) error {
	if err := s.leave(ctx, courseID, actor, models.EnrollmentStatusCompleted, nil); err != nil {
		return err
	}
	s.metrics.RecordTransition(TransitionCompleted)
	return nil
}

// CancelRequest deletes the actor's own pending request.
func (s *EnrollmentService) CancelRequest(ctx context.Context, requestID string, actor *models.JWTClaims) error {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if actor == nil || request.StudentID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requesting student can cancel this request")
	}
	if request.Status != models.RequestStatusPending {
		return appErrors.Clone(appErrors.ErrAlreadyProcessed, "Request already processed")
	}
	if err := s.requests.DeletePending(ctx, request.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrAlreadyProcessed, "Request already processed")
		}
		return internalError(err, "failed to cancel enrollment request")
	}
	s.metrics.RecordTransition(TransitionCancelled)
	return nil
}

// Status reports the actor's standing in a course.
func (s *EnrollmentService) Status(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.EnrollmentStatusView, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.courses.IsEnrolled(ctx, course.ID, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to check roster")
	}
	view := &models.EnrollmentStatusView{CourseID: course.ID, Enrolled: enrolled}

	record, err := s.records.FindByUserID(ctx, actor.UserID)
	switch {
	case err == nil:
		enrollment, err := s.records.GetEnrollment(ctx, record.ID, course.ID)
		if err == nil {
			view.EnrollmentStatus = enrollment.Status
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to load enrollment status")
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, internalError(err, "failed to load student record")
	}

	pending, err := s.requests.FindPending(ctx, actor.UserID, course.ID)
	if err == nil {
		view.PendingRequest = pending
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to load pending request")
	}
	return view, nil
}

// ListCourseRequests returns the pending requests of a course.
func (s *EnrollmentService) ListCourseRequests(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.EnrollmentRequestDetail, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionManageEnrollments); err != nil {
		return nil, err
	}
	return s.list(ctx, models.EnrollmentRequestFilter{CourseID: course.ID, Status: models.RequestStatusPending})
}

// ListInstructorPending returns pending requests across the actor's courses.
// Admins see every pending request.
func (s *EnrollmentService) ListInstructorPending(ctx context.Context, actor *models.JWTClaims) ([]models.EnrollmentRequestDetail, error) {
	filter := models.EnrollmentRequestFilter{Status: models.RequestStatusPending}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		filter.InstructorID = actor.UserID
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors can review enrollment requests")
	}
	return s.list(ctx, filter)
}

// ListMyRequests returns every request filed by the actor.
func (s *EnrollmentService) ListMyRequests(ctx context.Context, actor *models.JWTClaims) ([]models.EnrollmentRequestDetail, error) {
	return s.list(ctx, models.EnrollmentRequestFilter{StudentID: actor.UserID})
}

// History returns the actor's enrollment log.
func (s *EnrollmentService) History(ctx context.Context, actor *models.JWTClaims) (*models.StudentHistory, error) {
	record, err := s.records.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, internalError(err, "failed to load student record")
	}
	enrollments, err := s.records.ListEnrollments(ctx, record.ID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments")
	}
	history, err := s.records.ListHistory(ctx, record.ID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollment history")
	}
	return &models.StudentHistory{Record: *record, Enrollments: enrollments, History: history}, nil
}

// Roster lists the enrolled students of a course.
func (s *EnrollmentService) Roster(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.RosterEntry, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionViewStudents); err != nil {
		return nil, err
	}
	roster, err := s.courses.ListRoster(ctx, course.ID)
	if err != nil {
		return nil, internalError(err, "failed to list roster")
	}
	return roster, nil
}

// checkJoinable runs the shared preconditions of request and direct enroll.
func (s *EnrollmentService) checkJoinable(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.Course, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Archived {
		return nil, appErrors.Clone(appErrors.ErrCourseArchived, "Cannot enroll in archived course")
	}
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can enroll")
	}
	enrolled, err := s.courses.IsEnrolled(ctx, course.ID, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to check roster")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "Already enrolled")
	}
	if err := s.ensureNotCompleted(ctx, actor.UserID, course.ID); err != nil {
		return nil, err
	}
	return course, nil
}

// ensureNotCompleted rejects students who already finished the course;
// completed is terminal for their enrollment.
func (s *EnrollmentService) ensureNotCompleted(ctx context.Context, studentID, courseID string) error {
	record, err := s.records.FindByUserID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to load student record")
	}
	enrollment, err := s.records.GetEnrollment(ctx, record.ID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusCompleted {
		return appErrors.Clone(appErrors.ErrCourseCompleted, "Course already completed")
	}
	return nil
}

// loadProcessable returns a pending request and its course when actor may decide on it.
func (s *EnrollmentService) loadProcessable(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.EnrollmentRequest, *models.Course, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "Request already processed")
	}
	course, err := s.loadCourse(ctx, request.CourseID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionManageEnrollments); err != nil {
		return nil, nil, err
	}
	return request, course, nil
}

// leave takes the actor off the roster and records next on their student record.
func (s *EnrollmentService) leave(ctx context.Context, courseID string, actor *models.JWTClaims, next models.EnrollmentStatus, reason *string) error {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return err
	}
	enrolled, err := s.courses.IsEnrolled(ctx, course.ID, actor.UserID)
	if err != nil {
		return internalError(err, "failed to check roster")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrNotEnrolled, "Not enrolled in this course")
	}
	student, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return err
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		removed, err := s.courses.RemoveStudentWithTx(ctx, tx, course.ID, student.ID)
		if err != nil {
			return internalError(err, "failed to remove student from course")
		}
		if !removed {
			return appErrors.Clone(appErrors.ErrNotEnrolled, "Not enrolled in this course")
		}
		record, err := s.records.EnsureWithTx(ctx, tx, student)
		if err != nil {
			return internalError(err, "failed to load student record")
		}
		if err := s.transitionWithTx(ctx, tx, record.ID, course.ID, next); err != nil {
			return err
		}

		now := s.now()
		enrolledAt, err := s.records.LatestEnrolledAtWithTx(ctx, tx, record.ID, course.ID)
		if err != nil {
			return internalError(err, "failed to load enrollment history")
		}
		entry := &models.EnrollmentHistoryEntry{
			StudentRecordID: record.ID,
			CourseID:        course.ID,
			Status:          next,
			EnrolledAt:      now,
			UnenrolledAt:    &now,
			Reason:          reason,
		}
		if enrolledAt != nil {
			entry.EnrolledAt = *enrolledAt
		}
		if err := s.records.AppendHistoryWithTx(ctx, tx, entry); err != nil {
			return internalError(err, "failed to append enrollment history")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("student left course", zap.String("course_id", course.ID), zap.String("student_id", student.ID), zap.String("status", string(next)))
	return nil
}

// recordEnrolled mirrors a roster addition onto the student's record.
func (s *EnrollmentService) recordEnrolled(ctx context.Context, tx *sqlx.Tx, student *models.User, courseID string) error {
	record, err := s.records.EnsureWithTx(ctx, tx, student)
	if err != nil {
		return internalError(err, "failed to create student record")
	}
	if err := s.transitionWithTx(ctx, tx, record.ID, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return err
	}
	entry := &models.EnrollmentHistoryEntry{
		StudentRecordID: record.ID,
		CourseID:        courseID,
		Status:          models.EnrollmentStatusEnrolled,
		EnrolledAt:      s.now(),
	}
	if err := s.records.AppendHistoryWithTx(ctx, tx, entry); err != nil {
		return internalError(err, "failed to append enrollment history")
	}
	return nil
}

func (s *EnrollmentService) transitionWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string, next models.EnrollmentStatus) error {
	current := models.EnrollmentStatusNone
	enrollment, err := s.records.GetEnrollmentWithTx(ctx, tx, recordID, courseID)
	if err == nil {
		current = enrollment.Status
	} else if !errors.Is(err, sql.ErrNoRows) {
		return internalError(err, "failed to load enrollment status")
	}
	if !current.CanTransitionTo(next) {
		return appErrors.Clone(appErrors.ErrConflict, "cannot move enrollment from "+statusLabel(current)+" to "+string(next))
	}
	if err := s.records.UpsertEnrollmentWithTx(ctx, tx, recordID, courseID, next); err != nil {
		return internalError(err, "failed to update enrollment status")
	}
	return nil
}

func (s *EnrollmentService) resolvePendingWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) error {
	pending, err := s.requests.FindPendingWithTx(ctx, tx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to load pending request")
	}
	return s.resolveWithTx(ctx, tx, pending, models.RequestStatusEnrolled, studentID, nil)
}

func (s *EnrollmentService) resolveWithTx(ctx context.Context, tx *sqlx.Tx, request *models.EnrollmentRequest, status models.EnrollmentRequestStatus, processedBy string, reason *string) error {
	if !request.Status.CanTransitionTo(status) {
		return appErrors.Clone(appErrors.ErrAlreadyProcessed, "Request already processed")
	}
	now := s.now()
	request.Status = status
	request.RejectionReason = reason
	request.ProcessedAt = &now
	request.ProcessedBy = &processedBy
	if err := s.requests.ResolveWithTx(ctx, tx, request); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrAlreadyProcessed, "Request already processed")
		}
		return internalError(err, "failed to update enrollment request")
	}
	return nil
}

func (s *EnrollmentService) list(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, error) {
	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list enrollment requests")
	}
	return items, nil
}

func (s *EnrollmentService) detail(ctx context.Context, id string) (*models.EnrollmentRequestDetail, error) {
	detail, err := s.requests.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, internalError(err, "failed to load enrollment request")
	}
	return detail, nil
}

func (s *EnrollmentService) loadRequest(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, internalError(err, "failed to load enrollment request")
	}
	return request, nil
}

func (s *EnrollmentService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	return course, nil
}

func (s *EnrollmentService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	return user, nil
}

func (s *EnrollmentService) invalidateCatalog(ctx context.Context) {
	s.cache.Invalidate(ctx, courseListCachePrefix+"*")
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func statusLabel(s models.EnrollmentStatus) string {
	if s == models.EnrollmentStatusNone {
		return "none"
	}
	return string(s)
}
