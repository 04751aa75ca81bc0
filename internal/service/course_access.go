package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type assistantFinder interface {
	Find(ctx context.Context, courseID, userID string) (*models.CourseAssistant, error)
}

// CourseAccess is the single permission check for course-scoped operations.
// Admins and the course instructor hold every permission; assistants hold
// what their flags grant.
type CourseAccess struct {
	assistants assistantFinder
}

// NewCourseAccess constructs CourseAccess.
func NewCourseAccess(assistants assistantFinder) *CourseAccess {
	return &CourseAccess{assistants: assistants}
}

// Authorize returns nil when actor holds perm on course, FORBIDDEN otherwise.
func (a *CourseAccess) Authorize(ctx context.Context, course *models.Course, actor *models.JWTClaims, perm models.CoursePermission) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role == models.RoleAdmin || course.InstructorID == actor.UserID {
		return nil
	}
	if perm == models.PermissionManageCourse {
		return appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can perform this action")
	}
	assistant, err := a.lookup(ctx, course.ID, actor.UserID)
	if err != nil {
		return err
	}
	if assistant == nil || !assistant.Allows(perm) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient course permissions")
	}
	return nil
}

// IsStaff reports whether actor is an admin, the instructor or any assistant of course.
func (a *CourseAccess) IsStaff(ctx context.Context, course *models.Course, actor *models.JWTClaims) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.Role == models.RoleAdmin || course.InstructorID == actor.UserID {
		return true, nil
	}
	assistant, err := a.lookup(ctx, course.ID, actor.UserID)
	if err != nil {
		return false, err
	}
	return assistant != nil, nil
}

func (a *CourseAccess) lookup(ctx context.Context, courseID, userID string) (*models.CourseAssistant, error) {
	if a == nil || a.assistants == nil {
		return nil, nil
	}
	assistant, err := a.assistants.Find(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assistant")
	}
	return assistant, nil
}
