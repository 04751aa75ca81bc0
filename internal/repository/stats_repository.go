package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/progress-tracker-api/internal/models"
)

// StatsRepository reads progress aggregates over submissions and grade history.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// SubmissionCounts sums the stored submitted counters of a course and derives
// pending and overdue from the current roster and assignment deadlines.
func (r *StatsRepository) SubmissionCounts(ctx context.Context, courseID string, now time.Time) (*models.SubmissionStats, error) {
	const query = `SELECT
	COALESCE((SELECT SUM(st.submitted) FROM student_assignment_stats st WHERE st.course_id = $1), 0) AS submitted,
	COUNT(*) FILTER (WHERE s.id IS NULL AND a.due_date >= $2) AS pending,
	COUNT(*) FILTER (WHERE s.id IS NULL AND a.due_date < $2) AS overdue
FROM course_students cs
JOIN assignments a ON a.course_id = cs.course_id
LEFT JOIN assignment_submissions s ON s.assignment_id = a.id AND s.student_id = cs.student_id
WHERE cs.course_id = $1`
	var stats models.SubmissionStats
	if err := r.db.GetContext(ctx, &stats, query, courseID, now.UTC()); err != nil {
		return nil, fmt.Errorf("submission counts: %w", err)
	}
	stats.CourseID = courseID
	return &stats, nil
}

// GradeHistory returns a student record's grade points, oldest first.
func (r *StatsRepository) GradeHistory(ctx context.Context, recordID string) ([]models.GradeHistoryPoint, error) {
	const query = `SELECT g.id, g.student_record_id, g.course_id, g.term_label, g.score, g.recorded_at,
	c.code AS course_code, c.title AS course_title
FROM student_grade_history g LEFT JOIN courses c ON c.id = g.course_id
WHERE g.student_record_id = $1 ORDER BY g.recorded_at ASC`
	var items []models.GradeHistoryPoint
	if err := r.db.SelectContext(ctx, &items, query, recordID); err != nil {
		return nil, fmt.Errorf("grade history: %w", err)
	}
	return items, nil
}

// TermAverages returns the class average per term, in the order terms first
// appeared. An empty courseID averages across every course.
func (r *StatsRepository) TermAverages(ctx context.Context, courseID string) ([]models.TermAverage, error) {
	query := `SELECT term_label, AVG(score) AS average FROM student_grade_history`
	args := []interface{}{}
	if courseID != "" {
		query += ` WHERE course_id = $1`
		args = append(args, courseID)
	}
	query += ` GROUP BY term_label ORDER BY MIN(recorded_at) ASC, term_label ASC`
	var items []models.TermAverage
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("term averages: %w", err)
	}
	return items, nil
}
