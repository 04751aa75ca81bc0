package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

const courseListCachePrefix = "courses:list:"

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetArchived(ctx context.Context, id string, archived bool, at *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, courseID string) (*models.CourseStats, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CourseConfig tunes course defaults.
type CourseConfig struct {
	DefaultCapacity int
	CacheTTL        time.Duration
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	users     userReader
	access    *CourseAccess
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    CourseConfig
}

type cachedCourseList struct {
	Items []models.CourseSummary `json:"items"`
	Total int                    `json:"total"`
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, users userReader, access *CourseAccess, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config CourseConfig) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, users: users, access: access, cache: cache, validator: validate, logger: logger, config: config}
}

// List returns the catalog. Archived courses are hidden unless requested.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, *models.Pagination, error) {
	key := s.cache.Key(courseListCachePrefix, filter)
	var cached cachedCourseList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, paginate(filter.Page, filter.PageSize, cached.Total), nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	s.cache.Set(ctx, key, cachedCourseList{Items: items, Total: total}, s.config.CacheTTL)
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	return s.load(ctx, id)
}

// Create adds a course. Teachers own the courses they create; admins may
// name another instructor.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	if actor == nil || (actor.Role != models.RoleTeacher && actor.Role != models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can create courses")
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	instructorID := actor.UserID
	if actor.Role == models.RoleAdmin && req.InstructorID != "" {
		instructor, err := s.users.FindByID(ctx, req.InstructorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
		}
		if instructor.Role == models.RoleStudent {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor must be a teacher or admin")
		}
		instructorID = instructor.ID
	}

	capacity := s.config.DefaultCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	course := &models.Course{
		Code:         req.Code,
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: instructorID,
		Capacity:     capacity,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Course code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update patches course metadata.
func (s *CourseService) Update(ctx context.Context, id string, req dto.UpdateCourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionManageCourse); err != nil {
		return nil, err
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Capacity != nil {
		course.Capacity = *req.Capacity
	}
	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// ToggleArchive flips the archived flag.
func (s *CourseService) ToggleArchive(ctx context.Context, id string, actor *models.JWTClaims) (*models.Course, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionManageCourse); err != nil {
		return nil, err
	}

	course.Archived = !course.Archived
	course.ArchivedAt = nil
	if course.Archived {
		now := time.Now().UTC()
		course.ArchivedAt = &now
	}
	if err := s.repo.SetArchived(ctx, course.ID, course.Archived, course.ArchivedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Delete removes a course permanently. Admin only.
func (s *CourseService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can delete courses")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateCatalog(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

// Stats returns roster size and graded performance for course staff.
func (s *CourseService) Stats(ctx context.Context, id string, actor *models.JWTClaims) (*models.CourseStats, error) {
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	staff, err := s.access.IsStaff(ctx, course, actor)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course staff only")
	}
	stats, err := s.repo.Stats(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course stats")
	}
	return stats, nil
}

func (s *CourseService) load(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	s.cache.Invalidate(ctx, courseListCachePrefix+"*")
}
