package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type assistantRepository interface {
	Find(ctx context.Context, courseID, userID string) (*models.CourseAssistant, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseAssistantDetail, error)
	Create(ctx context.Context, assistant *models.CourseAssistant) error
	UpdatePermissions(ctx context.Context, assistant *models.CourseAssistant) error
	Delete(ctx context.Context, courseID, userID string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// AssistantService manages delegated course permissions.
type AssistantService struct {
	repo      assistantRepository
	courses   courseReader
	users     userReader
	access    *CourseAccess
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssistantService constructs AssistantService.
func NewAssistantService(repo assistantRepository, courses courseReader, users userReader, access *CourseAccess, validate *validator.Validate, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssistantService{repo: repo, courses: courses, users: users, access: access, validator: validate, logger: logger}
}

// List returns the assistants of a course.
func (s *AssistantService) List(ctx context.Context, courseID string, actor *models.JWTClaims) ([]models.CourseAssistantDetail, error) {
	if _, err := s.authorize(ctx, courseID, actor); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assistants")
	}
	return items, nil
}

// Assign grants a user assistant rights on a course. Unset flags take defaults.
func (s *AssistantService) Assign(ctx context.Context, courseID string, req dto.AssignAssistantRequest, actor *models.JWTClaims) (*models.CourseAssistant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assistant payload")
	}
	course, err := s.authorize(ctx, courseID, actor)
	if err != nil {
		return nil, err
	}
	if req.UserID == course.InstructorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor cannot be assigned as assistant")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	assistant := &models.CourseAssistant{
		CourseID:             course.ID,
		UserID:               req.UserID,
		AssistantPermissions: models.DefaultAssistantPermissions().Merge(req.Permissions),
	}
	if err := s.repo.Create(ctx, assistant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user is already an assistant for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign assistant")
	}
	s.logger.Info("assistant assigned", zap.String("course_id", course.ID), zap.String("user_id", req.UserID))
	return assistant, nil
}

// UpdatePermissions applies a partial permission update.
func (s *AssistantService) UpdatePermissions(ctx context.Context, courseID, userID string, patch models.AssistantPermissionsPatch, actor *models.JWTClaims) (*models.CourseAssistant, error) {
	if _, err := s.authorize(ctx, courseID, actor); err != nil {
		return nil, err
	}
	assistant, err := s.find(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}
	assistant.AssistantPermissions = assistant.AssistantPermissions.Merge(patch)
	if err := s.repo.UpdatePermissions(ctx, assistant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assistant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assistant")
	}
	return assistant, nil
}

// Remove revokes a user's assistant grant.
func (s *AssistantService) Remove(ctx context.Context, courseID, userID string, actor *models.JWTClaims) error {
	if _, err := s.authorize(ctx, courseID, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, courseID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assistant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assistant")
	}
	s.logger.Info("assistant removed", zap.String("course_id", courseID), zap.String("user_id", userID))
	return nil
}

func (s *AssistantService) authorize(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionManageCourse); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *AssistantService) find(ctx context.Context, courseID, userID string) (*models.CourseAssistant, error) {
	assistant, err := s.repo.Find(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assistant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant")
	}
	return assistant, nil
}
