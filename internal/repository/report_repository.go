package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/progress-tracker-api/internal/models"
)

const gradeRowSelect = `SELECT u.id AS student_id, u.name AS student_name, u.email AS student_email,
	c.id AS course_id, c.code AS course_code, a.id AS assignment_id, a.title AS assignment_title,
	a.max_score, s.score, (s.id IS NOT NULL) AS submitted`

// ReportRepository reads the grade matrix used by report exports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StudentGradeRows returns one row per assignment of every course the student
// has an enrollment record for, whatever its current status.
func (r *ReportRepository) StudentGradeRows(ctx context.Context, studentID string) ([]models.GradeRow, error) {
	query := gradeRowSelect + `
FROM student_records sr
JOIN users u ON u.id = sr.user_id
JOIN student_enrollments se ON se.student_record_id = sr.id
JOIN courses c ON c.id = se.course_id
JOIN assignments a ON a.course_id = c.id
LEFT JOIN assignment_submissions s ON s.assignment_id = a.id AND s.student_id = u.id
WHERE sr.user_id = $1
ORDER BY c.code ASC, a.due_date ASC`
	var rows []models.GradeRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("student grade rows: %w", err)
	}
	return rows, nil
}

// CourseGradeRows returns the roster crossed with the course's assignments.
func (r *ReportRepository) CourseGradeRows(ctx context.Context, courseID string) ([]models.GradeRow, error) {
	query := gradeRowSelect + `
FROM course_students cs
JOIN users u ON u.id = cs.student_id
JOIN courses c ON c.id = cs.course_id
JOIN assignments a ON a.course_id = c.id
LEFT JOIN assignment_submissions s ON s.assignment_id = a.id AND s.student_id = u.id
WHERE cs.course_id = $1
ORDER BY u.name ASC, a.due_date ASC`
	var rows []models.GradeRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("course grade rows: %w", err)
	}
	return rows, nil
}
