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

const studentRecordColumns = `id, user_id, name, email, created_at, updated_at`

// StudentRecordRepository stores the per-student academic ledger: current
// enrollments, the append-only history, submission counters and grades.
type StudentRecordRepository struct {
	db *sqlx.DB
}

// NewStudentRecordRepository constructs the repository.
func NewStudentRecordRepository(db *sqlx.DB) *StudentRecordRepository {
	return &StudentRecordRepository{db: db}
}

// FindByUserID returns the record owned by userID.
func (r *StudentRecordRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentRecord, error) {
	var record models.StudentRecord
	query := `SELECT ` + studentRecordColumns + ` FROM student_records WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &record, query, userID); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find student record: %w", err)
	}
	return &record, nil
}

// EnsureWithTx returns the record for user, creating it on first use. Name
// and email are refreshed from the user on every call.
func (r *StudentRecordRepository) EnsureWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) (*models.StudentRecord, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	query := `INSERT INTO student_records (id, user_id, name, email, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = EXCLUDED.updated_at
RETURNING ` + studentRecordColumns
	var record models.StudentRecord
	if err := tx.GetContext(ctx, &record, query, uuid.NewString(), user.ID, user.Name, user.Email, now); err != nil {
		return nil, fmt.Errorf("ensure student record: %w", err)
	}
	return &record, nil
}

// GetEnrollment returns the current membership row for a course.
func (r *StudentRecordRepository) GetEnrollment(ctx context.Context, recordID, courseID string) (*models.StudentEnrollment, error) {
	return r.getEnrollment(ctx, r.db, recordID, courseID)
}

// GetEnrollmentWithTx is GetEnrollment inside tx.
func (r *StudentRecordRepository) GetEnrollmentWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) (*models.StudentEnrollment, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return r.getEnrollment(ctx, tx, recordID, courseID)
}

func (r *StudentRecordRepository) getEnrollment(ctx context.Context, q sqlx.QueryerContext, recordID, courseID string) (*models.StudentEnrollment, error) {
	const query = `SELECT student_record_id, course_id, status, updated_at FROM student_enrollments WHERE student_record_id = $1 AND course_id = $2`
	var enrollment models.StudentEnrollment
	if err := sqlx.GetContext(ctx, q, &enrollment, query, recordID, courseID); err != nil {
		if isMissing(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get student enrollment: %w", err)
	}
	return &enrollment, nil
}

// UpsertEnrollmentWithTx sets the current membership status for a course.
func (r *StudentRecordRepository) UpsertEnrollmentWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string, status models.EnrollmentStatus) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `INSERT INTO student_enrollments (student_record_id, course_id, status, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (student_record_id, course_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, query, recordID, courseID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert student enrollment: %w", err)
	}
	return nil
}

// AppendHistoryWithTx adds an entry to the enrollment history log.
func (r *StudentRecordRepository) AppendHistoryWithTx(ctx context.Context, tx *sqlx.Tx, entry *models.EnrollmentHistoryEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.EnrolledAt.IsZero() {
		entry.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_enrollment_history (id, student_record_id, course_id, status, enrolled_at, unenrolled_at, reason)
VALUES (:id, :student_record_id, :course_id, :status, :enrolled_at, :unenrolled_at, :reason)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append enrollment history: %w", err)
	}
	return nil
}

// LatestEnrolledAtWithTx returns when the student last entered the course,
// used to carry the original enrolment time onto drop/complete entries.
func (r *StudentRecordRepository) LatestEnrolledAtWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) (*time.Time, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	const query = `SELECT MAX(enrolled_at) FROM student_enrollment_history WHERE student_record_id = $1 AND course_id = $2 AND status = 'enrolled'`
	var at sql.NullTime
	if err := tx.GetContext(ctx, &at, query, recordID, courseID); err != nil {
		return nil, fmt.Errorf("latest enrollment: %w", err)
	}
	if !at.Valid {
		return nil, nil
	}
	return &at.Time, nil
}

// ListEnrollments returns every current membership row of a record.
func (r *StudentRecordRepository) ListEnrollments(ctx context.Context, recordID string) ([]models.StudentEnrollment, error) {
	const query = `SELECT student_record_id, course_id, status, updated_at FROM student_enrollments WHERE student_record_id = $1 ORDER BY updated_at DESC`
	var items []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &items, query, recordID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return items, nil
}

// ListHistory returns the full history log, oldest first.
func (r *StudentRecordRepository) ListHistory(ctx context.Context, recordID string) ([]models.EnrollmentHistoryDetail, error) {
	const query = `SELECT h.id, h.student_record_id, h.course_id, h.status, h.enrolled_at, h.unenrolled_at, h.reason,
	c.code AS course_code, c.title AS course_title
FROM student_enrollment_history h LEFT JOIN courses c ON c.id = h.course_id
WHERE h.student_record_id = $1 ORDER BY h.enrolled_at ASC, h.unenrolled_at ASC NULLS FIRST`
	var items []models.EnrollmentHistoryDetail
	if err := r.db.SelectContext(ctx, &items, query, recordID); err != nil {
		return nil, fmt.Errorf("list enrollment history: %w", err)
	}
	return items, nil
}

// IncrementSubmittedWithTx bumps the submitted counter for a course.
func (r *StudentRecordRepository) IncrementSubmittedWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `INSERT INTO student_assignment_stats (student_record_id, course_id, submitted) VALUES ($1, $2, 1)
ON CONFLICT (student_record_id, course_id) DO UPDATE SET submitted = student_assignment_stats.submitted + 1`
	if _, err := tx.ExecContext(ctx, query, recordID, courseID); err != nil {
		return fmt.Errorf("increment submitted: %w", err)
	}
	return nil
}

// AppendGradeWithTx adds a point to the grade history.
func (r *StudentRecordRepository) AppendGradeWithTx(ctx context.Context, tx *sqlx.Tx, point *models.GradePoint) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if point.ID == "" {
		point.ID = uuid.NewString()
	}
	if point.RecordedAt.IsZero() {
		point.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_grade_history (id, student_record_id, course_id, term_label, score, recorded_at)
VALUES (:id, :student_record_id, :course_id, :term_label, :score, :recorded_at)`
	if _, err := tx.NamedExecContext(ctx, query, point); err != nil {
		return fmt.Errorf("append grade history: %w", err)
	}
	return nil
}
