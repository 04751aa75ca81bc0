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

const copySuffix = " (Copy)"

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	ListForStudent(ctx context.Context, studentID string) ([]models.UpcomingAssignment, error)
	ListForStaff(ctx context.Context, userID string) ([]models.UpcomingAssignment, error)
}

type assignmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

type submissionCreator interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, submission *models.Submission) error
	Exists(ctx context.Context, assignmentID, studentID string) (bool, error)
}

type submissionStatsRecorder interface {
	EnsureWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) (*models.StudentRecord, error)
	IncrementSubmittedWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) error
}

// AssignmentService manages assignments and student submissions to them.
type AssignmentService struct {
	tx          txProvider
	repo        assignmentRepository
	courses     assignmentCourseRepository
	submissions submissionCreator
	records     submissionStatsRecorder
	users       userReader
	access      *CourseAccess
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(
	tx txProvider,
	repo assignmentRepository,
	courses assignmentCourseRepository,
	submissions submissionCreator,
	records submissionStatsRecorder,
	users userReader,
	access *CourseAccess,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{
		tx:          tx,
		repo:        repo,
		courses:     courses,
		submissions: submissions,
		records:     records,
		users:       users,
		access:      access,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create adds an assignment to a course.
func (s *AssignmentService) Create(ctx context.Context, courseID string, req dto.CreateAssignmentRequest, actor *models.JWTClaims) (*models.Assignment, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionManageAssignments); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		CourseID:     course.ID,
		Title:        req.Title,
		Instructions: req.Instructions,
		DueDate:      req.DueDate.UTC(),
		MaxScore:     req.MaxScore,
		CreatedBy:    actor.UserID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, internalError(err, "failed to create assignment")
	}
	return assignment, nil
}

// ListByCourse returns a course's assignments.
func (s *AssignmentService) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, internalError(err, "failed to list assignments")
	}
	return items, nil
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	return s.load(ctx, id)
}

// Update patches an assignment.
func (s *AssignmentService) Update(ctx context.Context, id string, req dto.UpdateAssignmentRequest, actor *models.JWTClaims) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	assignment, err := s.loadManaged(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		assignment.Title = strings.TrimSpace(*req.Title)
	}
	if req.Instructions != nil {
		assignment.Instructions = *req.Instructions
	}
	if req.DueDate != nil {
		assignment.DueDate = req.DueDate.UTC()
	}
	if req.MaxScore != nil {
		assignment.MaxScore = *req.MaxScore
	}
	if err := s.repo.Update(ctx, assignment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, internalError(err, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment together with its submissions.
func (s *AssignmentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	assignment, err := s.loadManaged(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, assignment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return internalError(err, "failed to delete assignment")
	}
	return nil
}

// Duplicate copies an assignment into each target course. Every target is
// authorized before anything is written.
func (s *AssignmentService) Duplicate(ctx context.Context, id string, req dto.DuplicateAssignmentRequest, actor *models.JWTClaims) ([]models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duplicate payload")
	}
	source, err := s.loadManaged(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	targets := make([]*models.Course, 0, len(req.CourseIDs))
	for _, courseID := range req.CourseIDs {
		course, err := s.loadCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if err := s.access.Authorize(ctx, course, actor, models.PermissionManageAssignments); err != nil {
			return nil, err
		}
		targets = append(targets, course)
	}

	dueDate := source.DueDate
	if req.DueDate != nil {
		dueDate = req.DueDate.UTC()
	}
	copies := make([]models.Assignment, 0, len(targets))
	for _, course := range targets {
		clone := &models.Assignment{
			CourseID:     course.ID,
			Title:        source.Title + copySuffix,
			Instructions: source.Instructions,
			DueDate:      dueDate,
			MaxScore:     source.MaxScore,
			CreatedBy:    actor.UserID,
		}
		if err := s.repo.Create(ctx, clone); err != nil {
			return nil, internalError(err, "failed to duplicate assignment")
		}
		copies = append(copies, *clone)
	}
	return copies, nil
}

// UpcomingDeadlines lists assignments relevant to actor with urgency. Students
// see their enrolled courses; staff see courses they teach or assist.
func (s *AssignmentService) UpcomingDeadlines(ctx context.Context, actor *models.JWTClaims) ([]models.UpcomingAssignment, error) {
	var (
		items []models.UpcomingAssignment
		err   error
	)
	if actor.Role == models.RoleStudent {
		items, err = s.repo.ListForStudent(ctx, actor.UserID)
	} else {
		items, err = s.repo.ListForStaff(ctx, actor.UserID)
	}
	if err != nil {
		return nil, internalError(err, "failed to list upcoming assignments")
	}

	now := s.now()
	for i := range items {
		days := models.DaysUntil(now, items[i].DueDate)
		items[i].DaysUntilDue = days
		items[i].Urgency = models.UrgencyFor(days)
	}
	return items, nil
}

// Submit records a student's answer. One submission per student, before the
// due date, while enrolled.
func (s *AssignmentService) Submit(ctx context.Context, assignmentID string, req dto.SubmitAssignmentRequest, actor *models.JWTClaims) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit assignments")
	}
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.courses.IsEnrolled(ctx, assignment.CourseID, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to check roster")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "Not enrolled in this course")
	}
	if s.now().After(assignment.DueDate) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Assignment is past due")
	}
	exists, err := s.submissions.Exists(ctx, assignment.ID, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to check submission")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Already submitted")
	}
	student, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}

	submission := &models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    actor.UserID,
		Content:      req.Content,
	}
	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.submissions.CreateWithTx(ctx, tx, submission); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrConflict, "Already submitted")
			}
			return internalError(err, "failed to create submission")
		}
		record, err := s.records.EnsureWithTx(ctx, tx, student)
		if err != nil {
			return internalError(err, "failed to load student record")
		}
		if err := s.records.IncrementSubmittedWithTx(ctx, tx, record.ID, assignment.CourseID); err != nil {
			return internalError(err, "failed to update assignment stats")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("assignment submitted", zap.String("assignment_id", assignment.ID), zap.String("student_id", actor.UserID))
	return submission, nil
}

// loadManaged returns an assignment the actor may manage.
func (s *AssignmentService) loadManaged(ctx context.Context, id string, actor *models.JWTClaims) (*models.Assignment, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, assignment.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionManageAssignments); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) load(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, internalError(err, "failed to load assignment")
	}
	return assignment, nil
}

func (s *AssignmentService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	return course, nil
}
