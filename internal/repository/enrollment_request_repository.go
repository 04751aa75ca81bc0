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

const requestColumns = `er.id, er.student_id, er.course_id, er.status, er.message, er.rejection_reason,
	er.requested_at, er.processed_at, er.processed_by, er.created_at, er.updated_at`

const requestDetailSelect = `SELECT ` + requestColumns + `, c.code AS course_code, c.title AS course_title,
	u.name AS student_name, u.email AS student_email
FROM enrollment_requests er
LEFT JOIN courses c ON c.id = er.course_id
JOIN users u ON u.id = er.student_id`

// EnrollmentRequestRepository persists enrollment requests.
type EnrollmentRequestRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRequestRepository constructs the repository.
func NewEnrollmentRequestRepository(db *sqlx.DB) *EnrollmentRequestRepository {
	return &EnrollmentRequestRepository{db: db}
}

// FindByID returns a request by id.
func (r *EnrollmentRequestRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM enrollment_requests er WHERE er.id = $1`
	var req models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find enrollment request: %w", err)
	}
	return &req, nil
}

// FindDetail returns a request joined with course and student info.
func (r *EnrollmentRequestRepository) FindDetail(ctx context.Context, id string) (*models.EnrollmentRequestDetail, error) {
	var detail models.EnrollmentRequestDetail
	if err := r.db.GetContext(ctx, &detail, requestDetailSelect+` WHERE er.id = $1`, id); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find enrollment request detail: %w", err)
	}
	return &detail, nil
}

// FindPending returns the pending request for a (student, course) pair.
func (r *EnrollmentRequestRepository) FindPending(ctx context.Context, studentID, courseID string) (*models.EnrollmentRequest, error) {
	return r.findPending(ctx, r.db, studentID, courseID)
}

// FindPendingWithTx is FindPending inside tx.
func (r *EnrollmentRequestRepository) FindPendingWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (*models.EnrollmentRequest, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.findPending(ctx, tx, studentID, courseID)
}

func (r *EnrollmentRequestRepository) findPending(ctx context.Context, q sqlx.QueryerContext, studentID, courseID string) (*models.EnrollmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM enrollment_requests er WHERE er.student_id = $1 AND er.course_id = $2 AND er.status = 'pending'`
	var req models.EnrollmentRequest
	if err := sqlx.GetContext(ctx, q, &req, query, studentID, courseID); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find pending request: %w", err)
	}
	return &req, nil
}

// Create inserts a pending request. The partial unique index on pending
// requests surfaces as ErrDuplicate.
func (r *EnrollmentRequestRepository) Create(ctx context.Context, req *models.EnrollmentRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.Status = models.RequestStatusPending
	req.RequestedAt = now
	req.CreatedAt = now
	req.UpdatedAt = now

	const query = `INSERT INTO enrollment_requests (id, student_id, course_id, status, message, requested_at, created_at, updated_at)
VALUES (:id, :student_id, :course_id, :status, :message, :requested_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment request: %w", err)
	}
	return nil
}

// Resolve moves a request from pending to status outside a transaction.
func (r *EnrollmentRequestRepository) Resolve(ctx context.Context, req *models.EnrollmentRequest) error {
	return r.resolve(ctx, r.db, req)
}

// ResolveWithTx moves a request from pending to its new status inside tx.
func (r *EnrollmentRequestRepository) ResolveWithTx(ctx context.Context, tx *sqlx.Tx, req *models.EnrollmentRequest) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.resolve(ctx, tx, req)
}

// resolve only updates pending rows, so a concurrent processor loses with sql.ErrNoRows.
func (r *EnrollmentRequestRepository) resolve(ctx context.Context, exec sqlx.ExtContext, req *models.EnrollmentRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollment_requests SET status = :status, rejection_reason = :rejection_reason,
	processed_at = :processed_at, processed_by = :processed_by, updated_at = :updated_at
WHERE id = :id AND status = 'pending'`
	res, err := sqlx.NamedExecContext(ctx, exec, query, req)
	if err != nil {
		return fmt.Errorf("resolve enrollment request: %w", err)
	}
	return expectAffected(res)
}

// DeletePending hard-deletes a pending request.
func (r *EnrollmentRequestRepository) DeletePending(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollment_requests WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment request: %w", err)
	}
	return expectAffected(res)
}

// List returns request details matching filter, newest first.
func (r *EnrollmentRequestRepository) List(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, error) {
	var conditions []string
	var args []interface{}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("er.course_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("er.student_id = $%d", len(args)))
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("er.status = $%d", len(args)))
	}

	query := requestDetailSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY er.requested_at DESC"

	var items []models.EnrollmentRequestDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollment requests: %w", err)
	}
	return items, nil
}
