package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/progress-tracker-api/internal/models"
)

const courseColumns = `c.id, c.code, c.title, c.description, c.instructor_id, c.capacity, c.archived, c.archived_at, c.created_at, c.updated_at`

// CourseRepository persists courses and their enrolled-student roster.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID fetches a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return r.findByID(ctx, r.db, id, false)
}

// LockByIDWithTx fetches a course and holds a row lock until tx ends, which
// serialises roster changes against the capacity check.
func (r *CourseRepository) LockByIDWithTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Course, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.findByID(ctx, tx, id, true)
}

func (r *CourseRepository) findByID(ctx context.Context, q sqlx.QueryerContext, id string, lock bool) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE c.id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var course models.Course
	if err := sqlx.GetContext(ctx, q, &course, query, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// List returns catalog entries with enrolled counts.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error) {
	var conditions []string
	var args []interface{}

	if !filter.ShowArchived {
		conditions = append(conditions, "c.archived = FALSE")
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(c.title) LIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := resolveSort(filter.SortBy, "created_at", map[string]bool{
		"code":       true,
		"title":      true,
		"created_at": true,
	})
	sortOrder := resolveOrder(filter.SortOrder, "DESC")
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT %s, COALESCE(u.name, '') AS instructor_name,
	(SELECT COUNT(*) FROM course_students cs WHERE cs.course_id = c.id) AS enrolled_count
FROM courses c LEFT JOIN users u ON u.id = c.instructor_id%s ORDER BY c.%s %s LIMIT %d OFFSET %d`,
		courseColumns, where, sortBy, sortOrder, pageSize, offset)

	var items []models.CourseSummary
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	for i := range items {
		items[i].FillSeats()
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses c"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return items, total, nil
}

// Create inserts a course. A code collision returns ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, title, description, instructor_id, capacity, archived, archived_at, created_at, updated_at)
VALUES (:id, :code, :title, :description, :instructor_id, :capacity, :archived, :archived_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update writes mutable course metadata.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return expectAffected(res)
}

// SetArchived toggles the archive flag and timestamp.
func (r *CourseRepository) SetArchived(ctx context.Context, id string, archived bool, at *time.Time) error {
	const query = `UPDATE courses SET archived = $2, archived_at = $3, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, archived, at)
	if err != nil {
		return fmt.Errorf("archive course: %w", err)
	}
	return expectAffected(res)
}

// Delete hard-deletes a course. Requests and student history referencing it
// are left in place.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return expectAffected(res)
}

// IsEnrolled reports roster membership.
func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM course_students WHERE course_id = $1 AND student_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, courseID, studentID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// CountEnrolled returns the roster size.
func (r *CourseRepository) CountEnrolled(ctx context.Context, courseID string) (int, error) {
	return r.countEnrolled(ctx, r.db, courseID)
}

// CountEnrolledWithTx returns the roster size as seen by tx.
func (r *CourseRepository) CountEnrolledWithTx(ctx context.Context, tx *sqlx.Tx, courseID string) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("nil transaction provided")
	}
	return r.countEnrolled(ctx, tx, courseID)
}

func (r *CourseRepository) countEnrolled(ctx context.Context, q sqlx.QueryerContext, courseID string) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM course_students WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count roster: %w", err)
	}
	return count, nil
}

// AddStudentWithTx adds a student to the roster. It reports false when the
// student was already present.
func (r *CourseRepository) AddStudentWithTx(ctx context.Context, tx *sqlx.Tx, courseID, studentID string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("nil transaction provided")
	}
	const query = `INSERT INTO course_students (course_id, student_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT (course_id, student_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, query, courseID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add roster student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add roster student: %w", err)
	}
	return affected > 0, nil
}

// RemoveStudentWithTx drops a student from the roster. It reports false when
// the student was not present.
func (r *CourseRepository) RemoveStudentWithTx(ctx context.Context, tx *sqlx.Tx, courseID, studentID string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("nil transaction provided")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM course_students WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return false, fmt.Errorf("remove roster student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove roster student: %w", err)
	}
	return affected > 0, nil
}

// ListRoster returns the enrolled students of a course.
func (r *CourseRepository) ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT cs.student_id, u.name, u.email, cs.enrolled_at
FROM course_students cs JOIN users u ON u.id = cs.student_id
WHERE cs.course_id = $1 ORDER BY u.name ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}

// ListStudentCourseIDs returns the ids of courses a student is enrolled in.
func (r *CourseRepository) ListStudentCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT course_id FROM course_students WHERE student_id = $1`, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return ids, nil
}

// Stats aggregates roster size and graded submission performance, the
// latter as the mean of score/max_score percentages.
func (r *CourseRepository) Stats(ctx context.Context, courseID string) (*models.CourseStats, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM course_students WHERE course_id = $1) AS total_enrolled,
	(SELECT COUNT(*) FROM assignments WHERE course_id = $1) AS total_assignments,
	COUNT(s.id) AS graded,
	COALESCE(AVG(s.score / a.max_score * 100), 0) AS average
FROM assignment_submissions s JOIN assignments a ON a.id = s.assignment_id
WHERE a.course_id = $1 AND s.score IS NOT NULL`
	var row struct {
		TotalEnrolled    int     `db:"total_enrolled"`
		TotalAssignments int     `db:"total_assignments"`
		Graded           int     `db:"graded"`
		Average          float64 `db:"average"`
	}
	if err := r.db.GetContext(ctx, &row, query, courseID); err != nil {
		return nil, fmt.Errorf("course stats: %w", err)
	}
	return &models.CourseStats{
		CourseID:              courseID,
		TotalEnrolledStudents: row.TotalEnrolled,
		TotalAssignments:      row.TotalAssignments,
		GradedSubmissions:     row.Graded,
		AveragePerformance:    row.Average,
	}, nil
}
