package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/progress-tracker-api/internal/models"
)

const assistantColumns = `ca.id, ca.course_id, ca.user_id, ca.can_view_students, ca.can_view_grades, ca.can_edit_grades,
	ca.can_manage_assignments, ca.can_view_assignments, ca.can_manage_enrollments, ca.assigned_at`

// AssistantRepository stores per-course assistant grants.
type AssistantRepository struct {
	db *sqlx.DB
}

// NewAssistantRepository constructs an AssistantRepository.
func NewAssistantRepository(db *sqlx.DB) *AssistantRepository {
	return &AssistantRepository{db: db}
}

// Find returns the assistant grant of userID on courseID.
func (r *AssistantRepository) Find(ctx context.Context, courseID, userID string) (*models.CourseAssistant, error) {
	query := `SELECT ` + assistantColumns + ` FROM course_assistants ca WHERE ca.course_id = $1 AND ca.user_id = $2`
	var assistant models.CourseAssistant
	if err := r.db.GetContext(ctx, &assistant, query, courseID, userID); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find assistant: %w", err)
	}
	return &assistant, nil
}

// ListByCourse returns assistants with their names.
func (r *AssistantRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseAssistantDetail, error) {
	query := `SELECT ` + assistantColumns + `, u.name, u.email
FROM course_assistants ca JOIN users u ON u.id = ca.user_id
WHERE ca.course_id = $1 ORDER BY ca.assigned_at ASC`
	var items []models.CourseAssistantDetail
	if err := r.db.SelectContext(ctx, &items, query, courseID); err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	return items, nil
}

// Create adds an assistant grant. A second grant for the same user returns ErrDuplicate.
func (r *AssistantRepository) Create(ctx context.Context, assistant *models.CourseAssistant) error {
	if assistant.ID == "" {
		assistant.ID = uuid.NewString()
	}
	if assistant.AssignedAt.IsZero() {
		assistant.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_assistants (id, course_id, user_id, can_view_students, can_view_grades, can_edit_grades,
	can_manage_assignments, can_view_assignments, can_manage_enrollments, assigned_at)
VALUES (:id, :course_id, :user_id, :can_view_students, :can_view_grades, :can_edit_grades,
	:can_manage_assignments, :can_view_assignments, :can_manage_enrollments, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assistant); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create assistant: %w", err)
	}
	return nil
}

// UpdatePermissions overwrites the permission flags of a grant.
func (r *AssistantRepository) UpdatePermissions(ctx context.Context, assistant *models.CourseAssistant) error {
	const query = `UPDATE course_assistants SET can_view_students = :can_view_students, can_view_grades = :can_view_grades,
	can_edit_grades = :can_edit_grades, can_manage_assignments = :can_manage_assignments,
	can_view_assignments = :can_view_assignments, can_manage_enrollments = :can_manage_enrollments
WHERE course_id = :course_id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, assistant)
	if err != nil {
		return fmt.Errorf("update assistant permissions: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a grant.
func (r *AssistantRepository) Delete(ctx context.Context, courseID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_assistants WHERE course_id = $1 AND user_id = $2`, courseID, userID)
	if err != nil {
		return fmt.Errorf("delete assistant: %w", err)
	}
	return expectAffected(res)
}
