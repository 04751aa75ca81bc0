package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type reportRepoStub struct {
	student map[string][]models.GradeRow
	course  map[string][]models.GradeRow
}

func (r *reportRepoStub) StudentGradeRows(ctx context.Context, studentID string) ([]models.GradeRow, error) {
	return r.student[studentID], nil
}

func (r *reportRepoStub) CourseGradeRows(ctx context.Context, courseID string) ([]models.GradeRow, error) {
	return r.course[courseID], nil
}

func scorePtr(v float64) *float64 { return &v }

func newReportFixture(enabled bool) *ReportService {
	store := newMemStore()
	store.addUser("alice", "Alice Smith", models.RoleStudent)
	store.addUser("bob", "Bob", models.RoleStudent)
	store.addUser("teacher", "Teacher", models.RoleTeacher)
	store.addCourse("c1", "teacher", 10)

	repo := &reportRepoStub{
		student: map[string][]models.GradeRow{
			"alice": {
				{StudentID: "alice", CourseCode: "C-c1", AssignmentID: "a1", AssignmentTitle: "Essay", MaxScore: 10, Score: scorePtr(8), Submitted: true},
				{StudentID: "alice", CourseCode: "C-c1", AssignmentID: "a2", AssignmentTitle: "Quiz", MaxScore: 20},
			},
		},
		course: map[string][]models.GradeRow{
			"c1": {
				{StudentID: "alice", StudentName: "Alice Smith", StudentEmail: "alice@example.com", AssignmentID: "a1", AssignmentTitle: "Essay", MaxScore: 10, Score: scorePtr(8)},
				{StudentID: "alice", StudentName: "Alice Smith", StudentEmail: "alice@example.com", AssignmentID: "a2", AssignmentTitle: "Essay", MaxScore: 10, Score: scorePtr(10)},
				{StudentID: "bob", StudentName: "Bob", StudentEmail: "bob@example.com", AssignmentID: "a1", AssignmentTitle: "Essay", MaxScore: 10, Score: scorePtr(5)},
				{StudentID: "bob", StudentName: "Bob", StudentEmail: "bob@example.com", AssignmentID: "a2", AssignmentTitle: "Essay", MaxScore: 10},
			},
		},
	}
	return NewReportService(repo, fakeUsers{store}, fakeCourses{store}, nil, ReportConfig{Enabled: enabled})
}

func readCSV(t *testing.T, body []byte) [][]string {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestStudentReportCSV(t *testing.T) {
	svc := newReportFixture(true)

	file, err := svc.StudentReport(context.Background(), "alice", "", claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, "student-report-alice-smith.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records := readCSV(t, file.Body)
	assert.Equal(t, []string{"Grade Report - Alice Smith"}, records[0])
	assert.Equal(t, []string{"Course", "Assignment", "Score", "Max Score", "Percentage", "Submitted"}, records[1])
	assert.Equal(t, []string{"C-c1", "Essay", "8.00", "10.00", "80.00", "yes"}, records[2])
	assert.Equal(t, []string{"C-c1", "Quiz", "0.00", "20.00", "0.00", "no"}, records[3])
	assert.Contains(t, records, []string{"Total score", "8.00 / 30.00"})
	assert.Contains(t, records, []string{"Average", "26.67%"})
}

func TestCourseReportPivotsAssignments(t *testing.T) {
	svc := newReportFixture(true)

	file, err := svc.CourseReport(context.Background(), "c1", models.ReportFormatCSV, claims("root", models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, "course-report-c-c1.csv", file.Filename)

	records := readCSV(t, file.Body)
	assert.Equal(t, []string{"Student", "Email", "Essay", "Essay #2", "Total", "Percentage"}, records[1])
	assert.Equal(t, []string{"Alice Smith", "alice@example.com", "8.00", "10.00", "18.00", "90.00"}, records[2])
	assert.Equal(t, []string{"Bob", "bob@example.com", "5.00", "0.00", "5.00", "25.00"}, records[3])
	assert.Contains(t, records, []string{"Class average", "57.50%"})
}

func TestCourseReportPDF(t *testing.T) {
	svc := newReportFixture(true)

	file, err := svc.CourseReport(context.Background(), "c1", models.ReportFormatPDF, claims("teacher", models.RoleTeacher))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestReportGuards(t *testing.T) {
	ctx := context.Background()
	teacher := claims("teacher", models.RoleTeacher)

	_, err := newReportFixture(false).StudentReport(ctx, "alice", "", teacher)
	assertCode(t, err, appErrors.ErrPreconditionFailed)

	svc := newReportFixture(true)
	_, err = svc.StudentReport(ctx, "alice", "", claims("alice", models.RoleStudent))
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.StudentReport(ctx, "alice", "xlsx", teacher)
	assertCode(t, err, appErrors.ErrValidation)

	_, err = svc.StudentReport(ctx, "bob", "", teacher)
	assertCode(t, err, appErrors.ErrNotFound)

	_, err = svc.StudentReport(ctx, "teacher", "", teacher)
	assertCode(t, err, appErrors.ErrNotFound)

	_, err = svc.CourseReport(ctx, "missing", "", teacher)
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestReportValidation(t *testing.T) {
	svc := newReportFixture(true)
	ctx := context.Background()

	result, err := svc.ValidateStudent(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, result.HasData)
	assert.Equal(t, 2, result.Count)

	result, err = svc.ValidateStudent(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, result.HasData)
	assert.Equal(t, "No assignments found for report", result.Message)

	result, err = svc.ValidateCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "2 students found", result.Message)
}
