package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type submissionRepository interface {
	FindDetail(ctx context.Context, id string) (*models.SubmissionDetail, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.SubmissionDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error)
	UpdateGradeWithTx(ctx context.Context, tx *sqlx.Tx, submission *models.Submission) error
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type gradeHistoryRecorder interface {
	EnsureWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) (*models.StudentRecord, error)
	AppendGradeWithTx(ctx context.Context, tx *sqlx.Tx, point *models.GradePoint) error
}

// SubmissionService reads and grades submissions.
type SubmissionService struct {
	tx          txProvider
	repo        submissionRepository
	assignments assignmentReader
	courses     courseReader
	records     gradeHistoryRecorder
	users       userReader
	access      *CourseAccess
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(
	tx txProvider,
	repo submissionRepository,
	assignments assignmentReader,
	courses courseReader,
	records gradeHistoryRecorder,
	users userReader,
	access *CourseAccess,
	validate *validator.Validate,
	logger *zap.Logger,
) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		tx:          tx,
		repo:        repo,
		assignments: assignments,
		courses:     courses,
		records:     records,
		users:       users,
		access:      access,
		validator:   validate,
		logger:      logger,
	}
}

// Get returns a submission to its author or to course staff who can view grades.
func (s *SubmissionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SubmissionDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.StudentID == actor.UserID {
		return detail, nil
	}
	course, err := s.loadCourse(ctx, detail.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionViewGrades); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListByAssignment returns every submission of an assignment.
func (s *SubmissionService) ListByAssignment(ctx context.Context, assignmentID string, actor *models.JWTClaims) ([]models.SubmissionDetail, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, internalError(err, "failed to load assignment")
	}
	if err := s.authorizeCourse(ctx, assignment.CourseID, actor, models.PermissionViewGrades); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return items, nil
}

// ListByCourse returns every submission across a course.
func (s *SubmissionService) ListByCourse(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.SubmissionDetail, error) {
	if err := s.authorizeCourse(ctx, courseID, actor, models.PermissionViewGrades); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return items, nil
}

// ListByStudent returns a student's submissions. Students see their own;
// admins see all; other staff see those in courses where they may view grades.
func (s *SubmissionService) ListByStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.SubmissionDetail, error) {
	if actor.UserID != studentID && actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only view their own submissions")
	}
	items, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	if actor.UserID == studentID || actor.Role == models.RoleAdmin {
		return items, nil
	}

	allowed := map[string]bool{}
	visible := make([]models.SubmissionDetail, 0, len(items))
	for _, item := range items {
		ok, seen := allowed[item.CourseID]
		if !seen {
			err := s.authorizeCourse(ctx, item.CourseID, actor, models.PermissionViewGrades)
			switch {
			case err == nil:
				ok = true
			case appErrors.Is(err, appErrors.ErrForbidden), appErrors.Is(err, appErrors.ErrNotFound):
				ok = false
			default:
				return nil, err
			}
			allowed[item.CourseID] = ok
		}
		if ok {
			visible = append(visible, item)
		}
	}
	return visible, nil
}

// Grade records score, feedback and learning tips. A score also appends a
// point to the student's grade history, labelled with the course code.
func (s *SubmissionService) Grade(ctx context.Context, id string, req models.GradeSubmissionRequest, actor *models.JWTClaims) (*models.SubmissionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.Score == nil && req.Feedback == nil && req.LearningTips == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to grade")
	}
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, detail.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionEditGrades); err != nil {
		return nil, err
	}
	if req.Score != nil && *req.Score > detail.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score exceeds the assignment maximum")
	}

	submission := detail.Submission
	if req.Score != nil {
		submission.Score = req.Score
	}
	if req.Feedback != nil {
		submission.Feedback = req.Feedback
	}
	if req.LearningTips != nil {
		submission.LearningTips = req.LearningTips
	}

	var student *models.User
	if req.Score != nil {
		student, err = s.users.FindByID(ctx, detail.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, internalError(err, "failed to load student")
		}
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.repo.UpdateGradeWithTx(ctx, tx, &submission); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
			}
			return internalError(err, "failed to grade submission")
		}
		if student == nil {
			return nil
		}
		record, err := s.records.EnsureWithTx(ctx, tx, student)
		if err != nil {
			return internalError(err, "failed to load student record")
		}
		point := &models.GradePoint{
			StudentRecordID: record.ID,
			CourseID:        course.ID,
			TermLabel:       course.Code,
			Score:           *submission.Score,
		}
		if err := s.records.AppendGradeWithTx(ctx, tx, point); err != nil {
			return internalError(err, "failed to append grade history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail.Submission = submission
	s.logger.Info("submission graded", zap.String("submission_id", id), zap.String("actor_id", actor.UserID))
	return detail, nil
}

func (s *SubmissionService) authorizeCourse(ctx context.Context, courseID string, actor *models.JWTClaims, perm models.CoursePermission) error {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return err
	}
	return s.access.Authorize(ctx, course, actor, perm)
}

func (s *SubmissionService) load(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, internalError(err, "failed to load submission")
	}
	return detail, nil
}

func (s *SubmissionService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	return course, nil
}
