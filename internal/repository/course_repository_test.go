package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/progress-tracker-api/internal/models"
)

var courseRowColumns = []string{"id", "code", "title", "description", "instructor_id", "capacity", "archived", "archived_at", "created_at", "updated_at"}

func TestCourseListComputesSeats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	cols := append(append([]string{}, courseRowColumns...), "instructor_name", "enrolled_count")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.archived = FALSE ORDER BY c.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "CS101", "Intro", "", "t1", 2, false, nil, now, now, "Teacher", 2).
			AddRow("c2", "CS102", "Data", "", "t1", 10, false, nil, now, now, "Teacher", 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses c WHERE c.archived = FALSE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	items, total, err := repo.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, items[0].SeatsAvailable)
	assert.Equal(t, 7, items[1].SeatsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Course{Code: "CS101", Title: "Intro", InstructorID: "t1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStudentWithTxIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_students")).
		WithArgs("c1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (course_id, student_id) DO NOTHING")).
		WithArgs("c1", "s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	added, err := repo.AddStudentWithTx(context.Background(), tx, "c1", "s1")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.AddStudentWithTx(context.Background(), tx, "c1", "s1")
	require.NoError(t, err)
	assert.False(t, added)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddStudentWithTxRequiresTx(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	_, err := NewCourseRepository(db).AddStudentWithTx(context.Background(), nil, "c1", "s1")
	assert.Error(t, err)
}

func TestLockByIDWithTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses c WHERE c.id = $1 FOR UPDATE")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).AddRow("c1", "CS101", "Intro", "", "t1", 1, false, nil, now, now))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	course, err := repo.LockByIDWithTx(context.Background(), tx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, course.Capacity)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetArchivedMissingCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET archived")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetArchived(context.Background(), "missing", true, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCourseStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AVG(s.score / a.max_score * 100)")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"total_enrolled", "total_assignments", "graded", "average"}).AddRow(3, 2, 4, 81.25))

	stats, err := repo.Stats(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEnrolledStudents)
	assert.Equal(t, 81.25, stats.AveragePerformance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseFindByMalformedID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses c WHERE c.id = $1")).
		WithArgs("abc").
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})

	_, err := repo.FindByID(context.Background(), "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
