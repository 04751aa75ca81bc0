package service

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type enrollmentFixture struct {
	store   *memStore
	svc     *EnrollmentService
	mock    sqlmock.Sqlmock
	metrics *MetricsService
}

func newEnrollmentFixture(t *testing.T, cfg EnrollmentConfig) *enrollmentFixture {
	store := newMemStore()
	store.addUser("teacher", "Teacher", models.RoleTeacher)
	store.addUser("helper", "Helper", models.RoleTeacher)
	store.addUser("alice", "Alice", models.RoleStudent)
	store.addUser("bob", "Bob", models.RoleStudent)
	store.addCourse("c1", "teacher", 1)

	tx, mock := newTxProviderMock(t)
	metrics := NewMetricsService()
	svc := NewEnrollmentService(tx, fakeCourses{store}, fakeRequests{store}, fakeRecords{store}, fakeUsers{store},
		NewCourseAccess(fakeAssistants{store}), metrics, nil, nil, nil, cfg)
	return &enrollmentFixture{store: store, svc: svc, mock: mock, metrics: metrics}
}

func (f *enrollmentFixture) transitions(name string) float64 {
	return testutil.ToFloat64(f.metrics.transitions.WithLabelValues(name))
}

func assertCode(t *testing.T, err error, target *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, target.Code, appErrors.FromError(err).Code)
}

func TestRequestThenApproveEnrollsStudent(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{EnforceCapacityOnApproval: true})
	ctx := context.Background()

	request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{Message: "please"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	require.NotNil(t, request.CourseCode)
	assert.Equal(t, "C-c1", *request.CourseCode)
	assert.Equal(t, "Alice", request.StudentName)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	approved, err := f.svc.Approve(ctx, request.ID, claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, "teacher", *approved.ProcessedBy)
	assert.NotNil(t, approved.ProcessedAt)

	assert.Equal(t, []string{"alice"}, f.store.rosterIDs("c1"))
	record := f.store.recordFor("alice")
	require.NotNil(t, record)
	assert.Equal(t, models.EnrollmentStatusEnrolled, f.store.enrollments[pairKey(record.ID, "c1")])
	history := f.store.historyFor(record.ID)
	require.Len(t, history, 1)
	assert.Equal(t, models.EnrollmentStatusEnrolled, history[0].Status)

	assert.Equal(t, 1.0, f.transitions(TransitionRequested))
	assert.Equal(t, 1.0, f.transitions(TransitionApproved))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRequestEnrollmentPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("already enrolled", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.store.enroll("c1", "alice")
		_, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		assertCode(t, err, appErrors.ErrAlreadyEnrolled)
		assert.Equal(t, "Already enrolled", appErrors.FromError(err).Message)
		assert.Empty(t, f.store.requests)
	})

	t.Run("duplicate pending", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		_, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		require.NoError(t, err)
		_, err = f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		assertCode(t, err, appErrors.ErrDuplicateRequest)
		assert.Equal(t, 1, f.store.pendingCount("alice", "c1"))
	})

	t.Run("archived course", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.store.courses["c1"].Archived = true
		_, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		assertCode(t, err, appErrors.ErrCourseArchived)
	})

	t.Run("non student", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		_, err := f.svc.RequestEnrollment(ctx, "c1", claims("helper", models.RoleTeacher), dto.RequestEnrollmentRequest{})
		assertCode(t, err, appErrors.ErrForbidden)
	})

	t.Run("missing course", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		_, err := f.svc.RequestEnrollment(ctx, "nope", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		assertCode(t, err, appErrors.ErrNotFound)
	})
}

func TestRejectLeavesRosterUntouched(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()

	request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, request.ID, claims("teacher", models.RoleTeacher), dto.RejectEnrollmentRequest{RejectionReason: "full term"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "full term", *rejected.RejectionReason)

	assert.Empty(t, f.store.rosterIDs("c1"))
	assert.Empty(t, f.store.enrollments)
	assert.Empty(t, f.store.history)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApproveProcessedRequestConflicts(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()

	request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, request.ID, claims("teacher", models.RoleTeacher), dto.RejectEnrollmentRequest{})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, request.ID, claims("teacher", models.RoleTeacher))
	assertCode(t, err, appErrors.ErrAlreadyProcessed)
	assert.Empty(t, f.store.rosterIDs("c1"))
	assert.Equal(t, models.RequestStatusRejected, f.store.requests[request.ID].Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApproveAuthorization(t *testing.T) {
	ctx := context.Background()

	t.Run("outsider forbidden", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, request.ID, claims("helper", models.RoleTeacher))
		assertCode(t, err, appErrors.ErrForbidden)
	})

	t.Run("assistant without flag forbidden", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.store.grant("c1", "helper", models.DefaultAssistantPermissions())
		request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, request.ID, claims("helper", models.RoleTeacher))
		assertCode(t, err, appErrors.ErrForbidden)
	})

	t.Run("assistant with manage enrollments", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.store.grant("c1", "helper", models.AssistantPermissions{CanManageEnrollments: true})
		request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		require.NoError(t, err)

		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		approved, err := f.svc.Approve(ctx, request.ID, claims("helper", models.RoleTeacher))
		require.NoError(t, err)
		assert.Equal(t, "helper", *approved.ProcessedBy)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestApproveCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("enforced", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{EnforceCapacityOnApproval: true})
		f.store.enroll("c1", "bob")
		request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		require.NoError(t, err)

		f.mock.ExpectBegin()
		f.mock.ExpectRollback()
		_, err = f.svc.Approve(ctx, request.ID, claims("teacher", models.RoleTeacher))
		assertCode(t, err, appErrors.ErrCourseFull)
		assert.Equal(t, models.RequestStatusPending, f.store.requests[request.ID].Status)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("not enforced", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.store.enroll("c1", "bob")
		request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		require.NoError(t, err)

		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		approved, err := f.svc.Approve(ctx, request.ID, claims("teacher", models.RoleTeacher))
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, approved.Status)
		assert.Equal(t, []string{"alice", "bob"}, f.store.rosterIDs("c1"))
	})
}

func TestApproveAfterDirectEnrollMarksEnrolled(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{EnforceCapacityOnApproval: true})
	ctx := context.Background()

	request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Enroll(ctx, "c1", claims("alice", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, f.store.requests[request.ID].Status)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	approved, err := f.svc.Approve(ctx, request.ID, claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusEnrolled, approved.Status)

	assert.Equal(t, []string{"alice"}, f.store.rosterIDs("c1"))
	assert.Len(t, f.store.historyFor(f.store.recordFor("alice").ID), 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDirectEnroll(t *testing.T) {
	ctx := context.Background()

	t.Run("adds to roster and record", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		view, err := f.svc.Enroll(ctx, "c1", claims("alice", models.RoleStudent))
		require.NoError(t, err)
		assert.True(t, view.Enrolled)
		assert.Equal(t, []string{"alice"}, f.store.rosterIDs("c1"))
		assert.Equal(t, models.EnrollmentStatusEnrolled, f.store.enrollments[pairKey("rec-alice", "c1")])
		assert.Equal(t, 1.0, f.transitions(TransitionEnrolled))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("second enroll conflicts", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.store.courses["c1"].Capacity = 5
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		_, err := f.svc.Enroll(ctx, "c1", claims("alice", models.RoleStudent))
		require.NoError(t, err)

		_, err = f.svc.Enroll(ctx, "c1", claims("alice", models.RoleStudent))
		assertCode(t, err, appErrors.ErrAlreadyEnrolled)
		assert.Equal(t, []string{"alice"}, f.store.rosterIDs("c1"))
	})

	t.Run("full course", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{})
		f.store.enroll("c1", "bob")
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()
		_, err := f.svc.Enroll(ctx, "c1", claims("alice", models.RoleStudent))
		assertCode(t, err, appErrors.ErrCourseFull)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("resolves pending when configured", func(t *testing.T) {
		f := newEnrollmentFixture(t, EnrollmentConfig{ResolvePendingOnDirectEnroll: true})
		request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
		require.NoError(t, err)

		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		_, err = f.svc.Enroll(ctx, "c1", claims("alice", models.RoleStudent))
		require.NoError(t, err)

		stored := f.store.requests[request.ID]
		assert.Equal(t, models.RequestStatusEnrolled, stored.Status)
		require.NotNil(t, stored.ProcessedBy)
		assert.Equal(t, "alice", *stored.ProcessedBy)
	})
}

func TestEnrollRollsBackWhenRecordWriteFails(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	f.store.ensureErr = errBoom

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Enroll(context.Background(), "c1", claims("alice", models.RoleStudent))
	assertCode(t, err, appErrors.ErrInternal)
	assert.Equal(t, 0.0, f.transitions(TransitionEnrolled))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUnenrollKeepsHistory(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()
	alice := claims("alice", models.RoleStudent)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.svc.Enroll(ctx, "c1", alice)
	require.NoError(t, err)
	first := f.store.historyFor("rec-alice")[0]

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Unenroll(ctx, "c1", alice, dto.UnenrollRequest{Reason: "schedule conflict"}))

	assert.Empty(t, f.store.rosterIDs("c1"))
	assert.Equal(t, models.EnrollmentStatusDropped, f.store.enrollments[pairKey("rec-alice", "c1")])

	history := f.store.historyFor("rec-alice")
	require.Len(t, history, 2)
	assert.Equal(t, first, history[0])
	dropped := history[1]
	assert.Equal(t, models.EnrollmentStatusDropped, dropped.Status)
	require.NotNil(t, dropped.Reason)
	assert.Equal(t, "schedule conflict", *dropped.Reason)
	assert.NotNil(t, dropped.UnenrolledAt)
	assert.Equal(t, first.EnrolledAt, dropped.EnrolledAt)
	assert.Equal(t, 1.0, f.transitions(TransitionDropped))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Enroll(ctx, "c1", alice)
	require.NoError(t, err)
	assert.Len(t, f.store.historyFor("rec-alice"), 3)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUnenrollRequiresMembership(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	err := f.svc.Unenroll(context.Background(), "c1", claims("alice", models.RoleStudent), dto.UnenrollRequest{})
	assertCode(t, err, appErrors.ErrNotEnrolled)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestMarkCompletedBlocksReEnroll(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()
	alice := claims("alice", models.RoleStudent)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.svc.Enroll(ctx, "c1", alice)
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.MarkCompleted(ctx, "c1", alice))
	assert.Equal(t, models.EnrollmentStatusCompleted, f.store.enrollments[pairKey("rec-alice", "c1")])
	assert.Empty(t, f.store.rosterIDs("c1"))

	_, err = f.svc.Enroll(ctx, "c1", alice)
	assertCode(t, err, appErrors.ErrCourseCompleted)
	assert.Equal(t, "Course already completed", appErrors.FromError(err).Message)
	_, err = f.svc.RequestEnrollment(ctx, "c1", alice, dto.RequestEnrollmentRequest{})
	assertCode(t, err, appErrors.ErrCourseCompleted)
	assert.Empty(t, f.store.requests)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApproveRejectsCompletedStudent(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()
	alice := claims("alice", models.RoleStudent)

	request, err := f.svc.RequestEnrollment(ctx, "c1", alice, dto.RequestEnrollmentRequest{})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Enroll(ctx, "c1", alice)
	require.NoError(t, err)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.MarkCompleted(ctx, "c1", alice))

	_, err = f.svc.Approve(ctx, request.ID, claims("teacher", models.RoleTeacher))
	assertCode(t, err, appErrors.ErrCourseCompleted)
	assert.Equal(t, models.RequestStatusPending, f.store.requests[request.ID].Status)
	assert.Empty(t, f.store.rosterIDs("c1"))
	assert.Equal(t, models.EnrollmentStatusCompleted, f.store.enrollments[pairKey("rec-alice", "c1")])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCancelRequest(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()

	request, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
	require.NoError(t, err)

	err = f.svc.CancelRequest(ctx, request.ID, claims("bob", models.RoleStudent))
	assertCode(t, err, appErrors.ErrForbidden)

	require.NoError(t, f.svc.CancelRequest(ctx, request.ID, claims("alice", models.RoleStudent)))
	assert.Empty(t, f.store.requests)

	err = f.svc.CancelRequest(ctx, request.ID, claims("alice", models.RoleStudent))
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestStatusReportsPendingRequest(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()
	alice := claims("alice", models.RoleStudent)

	view, err := f.svc.Status(ctx, "c1", alice)
	require.NoError(t, err)
	assert.False(t, view.Enrolled)
	assert.Nil(t, view.PendingRequest)

	_, err = f.svc.RequestEnrollment(ctx, "c1", alice, dto.RequestEnrollmentRequest{})
	require.NoError(t, err)

	view, err = f.svc.Status(ctx, "c1", alice)
	require.NoError(t, err)
	require.NotNil(t, view.PendingRequest)
	assert.Equal(t, models.RequestStatusPending, view.PendingRequest.Status)
}

func TestListingRequests(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()
	f.store.addCourse("c2", "helper", 10)

	_, err := f.svc.RequestEnrollment(ctx, "c1", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
	require.NoError(t, err)
	_, err = f.svc.RequestEnrollment(ctx, "c2", claims("alice", models.RoleStudent), dto.RequestEnrollmentRequest{})
	require.NoError(t, err)

	pending, err := f.svc.ListInstructorPending(ctx, claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c1", pending[0].CourseID)

	all, err := f.svc.ListInstructorPending(ctx, claims("root", models.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListInstructorPending(ctx, claims("alice", models.RoleStudent))
	assertCode(t, err, appErrors.ErrForbidden)

	mine, err := f.svc.ListMyRequests(ctx, claims("alice", models.RoleStudent))
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ListCourseRequests(ctx, "c1", claims("alice", models.RoleStudent))
	assertCode(t, err, appErrors.ErrForbidden)
	course, err := f.svc.ListCourseRequests(ctx, "c1", claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	assert.Len(t, course, 1)
}

func TestHistoryAndRoster(t *testing.T) {
	f := newEnrollmentFixture(t, EnrollmentConfig{})
	ctx := context.Background()
	alice := claims("alice", models.RoleStudent)

	_, err := f.svc.History(ctx, alice)
	assertCode(t, err, appErrors.ErrNotFound)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Enroll(ctx, "c1", alice)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", history.Record.UserID)
	assert.Len(t, history.History, 1)
	assert.Len(t, history.Enrollments, 1)

	f.store.grant("c1", "helper", models.AssistantPermissions{})
	_, err = f.svc.Roster(ctx, "c1", claims("helper", models.RoleTeacher))
	assertCode(t, err, appErrors.ErrForbidden)

	roster, err := f.svc.Roster(ctx, "c1", claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "alice", roster[0].StudentID)
}
