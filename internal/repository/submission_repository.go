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

const submissionDetailSelect = `SELECT s.id, s.assignment_id, s.student_id, s.content, s.score, s.feedback, s.learning_tips,
	s.submitted_at, s.updated_at, a.course_id, a.title AS assignment_title, a.max_score,
	u.name AS student_name, u.email AS student_email
FROM assignment_submissions s
JOIN assignments a ON a.id = s.assignment_id
JOIN users u ON u.id = s.student_id`

// SubmissionRepository persists assignment submissions and grades.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindDetail returns a submission with assignment and student info.
func (r *SubmissionRepository) FindDetail(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	var detail models.SubmissionDetail
	if err := r.db.GetContext(ctx, &detail, submissionDetailSelect+` WHERE s.id = $1`, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &detail, nil
}

// ListByAssignment returns every submission for an assignment.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	return r.list(ctx, ` WHERE s.assignment_id = $1 ORDER BY s.submitted_at ASC`, assignmentID)
}

// ListByCourse returns submissions across a course's assignments.
func (r *SubmissionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.SubmissionDetail, error) {
	return r.list(ctx, ` WHERE a.course_id = $1 ORDER BY a.due_date ASC, s.submitted_at ASC`, courseID)
}

// ListByStudent returns a student's submissions, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error) {
	return r.list(ctx, ` WHERE s.student_id = $1 ORDER BY s.submitted_at DESC`, studentID)
}

func (r *SubmissionRepository) list(ctx context.Context, clause string, arg string) ([]models.SubmissionDetail, error) {
	var items []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &items, submissionDetailSelect+clause, arg); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return items, nil
}

// CreateWithTx inserts a submission. A second submission by the same student
// returns ErrDuplicate.
func (r *SubmissionRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, submission *models.Submission) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.SubmittedAt = now
	submission.UpdatedAt = now
	const query = `INSERT INTO assignment_submissions (id, assignment_id, student_id, content, submitted_at, updated_at)
VALUES (:id, :assignment_id, :student_id, :content, :submitted_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, submission); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// Exists reports whether the student has submitted the assignment.
func (r *SubmissionRepository) Exists(ctx context.Context, assignmentID, studentID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM assignment_submissions WHERE assignment_id = $1 AND student_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, assignmentID, studentID); err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

// UpdateGradeWithTx writes score, feedback and learning tips.
func (r *SubmissionRepository) UpdateGradeWithTx(ctx context.Context, tx *sqlx.Tx, submission *models.Submission) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignment_submissions SET score = :score, feedback = :feedback, learning_tips = :learning_tips, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, submission)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return expectAffected(res)
}
