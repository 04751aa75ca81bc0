package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

func newSubmissionFixture(t *testing.T) (*memStore, *SubmissionService, func() error) {
	store := newMemStore()
	store.addUser("teacher", "Teacher", models.RoleTeacher)
	store.addUser("grader", "Grader", models.RoleTeacher)
	store.addUser("alice", "Alice", models.RoleStudent)
	store.addUser("bob", "Bob", models.RoleStudent)
	store.addCourse("c1", "teacher", 10)
	store.addCourse("c2", "grader", 10)
	store.addAssignment("a1", "c1", time.Now().Add(24*time.Hour), 10)
	store.addAssignment("a2", "c2", time.Now().Add(24*time.Hour), 50)
	store.addSubmission("s1", "a1", "alice")
	store.addSubmission("s2", "a2", "alice")

	tx, mock := newTxProviderMock(t)
	svc := NewSubmissionService(tx, fakeSubmissions{store}, fakeAssignments{store}, fakeCourses{store}, fakeRecords{store}, fakeUsers{store},
		NewCourseAccess(fakeAssistants{store}), nil, nil)
	return store, svc, func() error {
		return mock.ExpectationsWereMet()
	}
}

func TestGradeSubmissionAppendsHistory(t *testing.T) {
	store, svc, _ := newSubmissionFixture(t)
	ctx := context.Background()
	mock := svc.tx.(*txProviderMock).mock
	mock.ExpectBegin()
	mock.ExpectCommit()

	score := 8.5
	feedback := "Good structure"
	detail, err := svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Score: &score, Feedback: &feedback}, claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	require.NotNil(t, detail.Score)
	assert.Equal(t, 8.5, *detail.Score)
	assert.Equal(t, "Good structure", *store.submissions["s1"].Feedback)

	require.Len(t, store.grades, 1)
	assert.Equal(t, "rec-alice", store.grades[0].StudentRecordID)
	assert.Equal(t, "C-c1", store.grades[0].TermLabel)
	assert.Equal(t, 8.5, store.grades[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeFeedbackOnlySkipsHistory(t *testing.T) {
	store, svc, expectationsMet := newSubmissionFixture(t)
	mock := svc.tx.(*txProviderMock).mock
	mock.ExpectBegin()
	mock.ExpectCommit()

	tips := "Review chapter 3"
	_, err := svc.Grade(context.Background(), "s1", models.GradeSubmissionRequest{LearningTips: &tips}, claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	assert.Empty(t, store.grades)
	assert.Nil(t, store.submissions["s1"].Score)
	assert.NoError(t, expectationsMet())
}

func TestGradeRejections(t *testing.T) {
	store, svc, _ := newSubmissionFixture(t)
	ctx := context.Background()
	teacher := claims("teacher", models.RoleTeacher)
	tooHigh := 11.0
	negative := -1.0

	_, err := svc.Grade(ctx, "s1", models.GradeSubmissionRequest{}, teacher)
	assertCode(t, err, appErrors.ErrValidation)

	_, err = svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Score: &negative}, teacher)
	assertCode(t, err, appErrors.ErrValidation)

	_, err = svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Score: &tooHigh}, teacher)
	assertCode(t, err, appErrors.ErrValidation)

	ok := 5.0
	_, err = svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Score: &ok}, claims("grader", models.RoleTeacher))
	assertCode(t, err, appErrors.ErrForbidden)

	store.grant("c1", "grader", models.AssistantPermissions{CanViewGrades: true})
	_, err = svc.Grade(ctx, "s1", models.GradeSubmissionRequest{Score: &ok}, claims("grader", models.RoleTeacher))
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.Grade(ctx, "missing", models.GradeSubmissionRequest{Score: &ok}, teacher)
	assertCode(t, err, appErrors.ErrNotFound)
	assert.Empty(t, store.grades)
}

func TestSubmissionVisibility(t *testing.T) {
	store, svc, _ := newSubmissionFixture(t)
	ctx := context.Background()

	detail, err := svc.Get(ctx, "s1", claims("alice", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, "Assignment a1", detail.AssignmentTitle)

	_, err = svc.Get(ctx, "s1", claims("bob", models.RoleStudent))
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.ListByStudent(ctx, "alice", claims("bob", models.RoleStudent))
	assertCode(t, err, appErrors.ErrForbidden)

	own, err := svc.ListByStudent(ctx, "alice", claims("alice", models.RoleStudent))
	require.NoError(t, err)
	assert.Len(t, own, 2)

	scoped, err := svc.ListByStudent(ctx, "alice", claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "s1", scoped[0].ID)

	store.grant("c2", "teacher", models.AssistantPermissions{CanViewGrades: true})
	widened, err := svc.ListByStudent(ctx, "alice", claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	assert.Len(t, widened, 2)

	all, err := svc.ListByStudent(ctx, "alice", claims("root", models.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCourse, err := svc.ListByCourse(ctx, "c2", claims("grader", models.RoleTeacher))
	require.NoError(t, err)
	assert.Len(t, byCourse, 1)

	_, err = svc.ListByAssignment(ctx, "a2", claims("bob", models.RoleStudent))
	assertCode(t, err, appErrors.ErrForbidden)
}
