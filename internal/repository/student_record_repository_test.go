package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/progress-tracker-api/internal/models"
)

func TestEnsureWithTxUpsertsByUserID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRecordRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).
		WithArgs(sqlmock.AnyArg(), "u1", "Ann", "ann@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "email", "created_at", "updated_at"}).
			AddRow("rec-1", "u1", "Ann", "ann@example.com", now, now))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	record, err := repo.EnsureWithTx(context.Background(), tx, &models.User{ID: "u1", Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendHistoryWithTxIsInsertOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO student_enrollment_history").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	reason := "schedule conflict"
	now := time.Now()
	entry := &models.EnrollmentHistoryEntry{StudentRecordID: "rec-1", CourseID: "c1", Status: models.EnrollmentStatusDropped, UnenrolledAt: &now, Reason: &reason}
	require.NoError(t, repo.AppendHistoryWithTx(context.Background(), tx, entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.EnrolledAt.IsZero())
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEnrollmentWithTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_enrollments")).
		WithArgs("rec-1", "c1", models.EnrollmentStatusEnrolled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.UpsertEnrollmentWithTx(context.Background(), tx, "rec-1", "c1", models.EnrollmentStatusEnrolled))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementSubmittedWithTxOnlyCountsSubmissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_assignment_stats (student_record_id, course_id, submitted) VALUES ($1, $2, 1)")).
		WithArgs("rec-1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.IncrementSubmittedWithTx(context.Background(), tx, "rec-1", "c1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestEnrolledAtWithTxNoHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(enrolled_at)")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	at, err := repo.LatestEnrolledAtWithTx(context.Background(), tx, "rec-1", "c1")
	require.NoError(t, err)
	assert.Nil(t, at)
	require.NoError(t, tx.Rollback())
}
