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

const assignmentColumns = `a.id, a.course_id, a.title, a.instructions, a.due_date, a.max_score, a.created_by, a.created_at, a.updated_at`

// AssignmentRepository persists course assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.id = $1`, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// ListByCourse returns a course's assignments ordered by due date.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	var items []models.Assignment
	query := `SELECT ` + assignmentColumns + ` FROM assignments a WHERE a.course_id = $1 ORDER BY a.due_date ASC`
	if err := r.db.SelectContext(ctx, &items, query, courseID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return items, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, course_id, title, instructions, due_date, max_score, created_by, created_at, updated_at)
VALUES (:id, :course_id, :title, :instructions, :due_date, :max_score, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update writes mutable fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, instructions = :instructions, due_date = :due_date, max_score = :max_score, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an assignment and, through the foreign key, its submissions.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectAffected(res)
}

// ListForStudent returns assignments of non-archived courses the student is
// enrolled in, flagged with whether the student has submitted.
func (r *AssignmentRepository) ListForStudent(ctx context.Context, studentID string) ([]models.UpcomingAssignment, error) {
	query := `SELECT ` + assignmentColumns + `, c.code AS course_code, c.title AS course_title,
	EXISTS(SELECT 1 FROM assignment_submissions s WHERE s.assignment_id = a.id AND s.student_id = $1) AS is_submitted
FROM assignments a
JOIN courses c ON c.id = a.course_id AND c.archived = FALSE
JOIN course_students cs ON cs.course_id = c.id AND cs.student_id = $1
ORDER BY a.due_date ASC`
	return r.selectUpcoming(ctx, query, studentID)
}

// ListForStaff returns assignments of non-archived courses the user teaches
// or assists.
func (r *AssignmentRepository) ListForStaff(ctx context.Context, userID string) ([]models.UpcomingAssignment, error) {
	query := `SELECT ` + assignmentColumns + `, c.code AS course_code, c.title AS course_title, FALSE AS is_submitted
FROM assignments a
JOIN courses c ON c.id = a.course_id AND c.archived = FALSE
WHERE c.instructor_id = $1 OR EXISTS(SELECT 1 FROM course_assistants ca WHERE ca.course_id = c.id AND ca.user_id = $1)
ORDER BY a.due_date ASC`
	return r.selectUpcoming(ctx, query, userID)
}

func (r *AssignmentRepository) selectUpcoming(ctx context.Context, query, userID string) ([]models.UpcomingAssignment, error) {
	var rows []struct {
		models.AssignmentDetail
		IsSubmitted bool `db:"is_submitted"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list upcoming assignments: %w", err)
	}
	items := make([]models.UpcomingAssignment, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.UpcomingAssignment{AssignmentDetail: row.AssignmentDetail, IsSubmitted: row.IsSubmitted})
	}
	return items, nil
}
