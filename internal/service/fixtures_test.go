package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/internal/repository"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// memStore backs the fake repositories below with shared in-memory state.
type memStore struct {
	users       map[string]*models.User
	courses     map[string]*models.Course
	roster      map[string]map[string]time.Time
	assistants  map[string]*models.CourseAssistant
	requests    map[string]*models.EnrollmentRequest
	records     map[string]*models.StudentRecord
	enrollments map[string]models.EnrollmentStatus
	history     []models.EnrollmentHistoryEntry
	assignments map[string]*models.Assignment
	submissions map[string]*models.Submission
	grades      []models.GradePoint
	submitted   map[string]int

	ensureErr  error
	historyErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*models.User{},
		courses:     map[string]*models.Course{},
		roster:      map[string]map[string]time.Time{},
		assistants:  map[string]*models.CourseAssistant{},
		requests:    map[string]*models.EnrollmentRequest{},
		records:     map[string]*models.StudentRecord{},
		enrollments: map[string]models.EnrollmentStatus{},
		assignments: map[string]*models.Assignment{},
		submissions: map[string]*models.Submission{},
		submitted:   map[string]int{},
	}
}

func pairKey(a, b string) string { return a + "|" + b }

func (m *memStore) addUser(id, name string, role models.UserRole) *models.User {
	user := &models.User{ID: id, Name: name, Email: id + "@example.com", Role: role, Active: true}
	m.users[id] = user
	return user
}

func (m *memStore) addCourse(id, instructorID string, capacity int) *models.Course {
	course := &models.Course{ID: id, Code: "C-" + id, Title: "Course " + id, InstructorID: instructorID, Capacity: capacity}
	m.courses[id] = course
	return course
}

func (m *memStore) enroll(courseID, studentID string) {
	if m.roster[courseID] == nil {
		m.roster[courseID] = map[string]time.Time{}
	}
	m.roster[courseID][studentID] = time.Now()
}

func (m *memStore) rosterIDs(courseID string) []string {
	var ids []string
	for id := range m.roster[courseID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *memStore) recordFor(userID string) *models.StudentRecord {
	return m.records[userID]
}

func (m *memStore) historyFor(recordID string) []models.EnrollmentHistoryEntry {
	var out []models.EnrollmentHistoryEntry
	for _, h := range m.history {
		if h.StudentRecordID == recordID {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStore) pendingCount(studentID, courseID string) int {
	count := 0
	for _, r := range m.requests {
		if r.StudentID == studentID && r.CourseID == courseID && r.Status == models.RequestStatusPending {
			count++
		}
	}
	return count
}

type fakeUsers struct{ *memStore }

func (f fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range f.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

type fakeCourses struct{ *memStore }

func (f fakeCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeCourses) LockByIDWithTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Course, error) {
	return f.FindByID(ctx, id)
}

func (f fakeCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error) {
	var out []models.CourseSummary
	for _, c := range f.courses {
		if c.Archived && !filter.ShowArchived {
			continue
		}
		summary := models.CourseSummary{Course: *c, EnrolledCount: len(f.roster[c.ID])}
		summary.FillSeats()
		out = append(out, summary)
	}
	return out, len(out), nil
}

func (f fakeCourses) Create(ctx context.Context, course *models.Course) error {
	for _, c := range f.courses {
		if c.Code == course.Code {
			return repository.ErrDuplicate
		}
	}
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	copy := *course
	f.courses[course.ID] = &copy
	return nil
}

func (f fakeCourses) Update(ctx context.Context, course *models.Course) error {
	if _, ok := f.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *course
	f.courses[course.ID] = &copy
	return nil
}

func (f fakeCourses) SetArchived(ctx context.Context, id string, archived bool, at *time.Time) error {
	c, ok := f.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Archived = archived
	c.ArchivedAt = at
	return nil
}

func (f fakeCourses) Delete(ctx context.Context, id string) error {
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.courses, id)
	delete(f.roster, id)
	return nil
}

func (f fakeCourses) Stats(ctx context.Context, courseID string) (*models.CourseStats, error) {
	return &models.CourseStats{CourseID: courseID, TotalEnrolledStudents: len(f.roster[courseID])}, nil
}

func (f fakeCourses) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	_, ok := f.roster[courseID][studentID]
	return ok, nil
}

func (f fakeCourses) CountEnrolledWithTx(ctx context.Context, tx *sqlx.Tx, courseID string) (int, error) {
	return len(f.roster[courseID]), nil
}

func (f fakeCourses) AddStudentWithTx(ctx context.Context, tx *sqlx.Tx, courseID, studentID string) (bool, error) {
	if _, ok := f.roster[courseID][studentID]; ok {
		return false, nil
	}
	f.enroll(courseID, studentID)
	return true, nil
}

func (f fakeCourses) RemoveStudentWithTx(ctx context.Context, tx *sqlx.Tx, courseID, studentID string) (bool, error) {
	if _, ok := f.roster[courseID][studentID]; !ok {
		return false, nil
	}
	delete(f.roster[courseID], studentID)
	return true, nil
}

func (f fakeCourses) ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	var out []models.RosterEntry
	for _, id := range f.rosterIDs(courseID) {
		out = append(out, models.RosterEntry{StudentID: id, Name: f.users[id].Name, EnrolledAt: f.roster[courseID][id]})
	}
	return out, nil
}

func (f fakeCourses) ListStudentCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	var ids []string
	for courseID, students := range f.roster {
		if _, ok := students[studentID]; ok {
			ids = append(ids, courseID)
		}
	}
	return ids, nil
}

type fakeAssistants struct{ *memStore }

func (f fakeAssistants) Find(ctx context.Context, courseID, userID string) (*models.CourseAssistant, error) {
	if a, ok := f.assistants[pairKey(courseID, userID)]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeAssistants) ListByCourse(ctx context.Context, courseID string) ([]models.CourseAssistantDetail, error) {
	var out []models.CourseAssistantDetail
	for _, a := range f.assistants {
		if a.CourseID == courseID {
			out = append(out, models.CourseAssistantDetail{CourseAssistant: *a})
		}
	}
	return out, nil
}

func (f fakeAssistants) Create(ctx context.Context, assistant *models.CourseAssistant) error {
	key := pairKey(assistant.CourseID, assistant.UserID)
	if _, ok := f.assistants[key]; ok {
		return repository.ErrDuplicate
	}
	if assistant.ID == "" {
		assistant.ID = uuid.NewString()
	}
	copy := *assistant
	f.assistants[key] = &copy
	return nil
}

func (f fakeAssistants) UpdatePermissions(ctx context.Context, assistant *models.CourseAssistant) error {
	key := pairKey(assistant.CourseID, assistant.UserID)
	if _, ok := f.assistants[key]; !ok {
		return sql.ErrNoRows
	}
	copy := *assistant
	f.assistants[key] = &copy
	return nil
}

func (f fakeAssistants) Delete(ctx context.Context, courseID, userID string) error {
	key := pairKey(courseID, userID)
	if _, ok := f.assistants[key]; !ok {
		return sql.ErrNoRows
	}
	delete(f.assistants, key)
	return nil
}

func (m *memStore) grant(courseID, userID string, perms models.AssistantPermissions) {
	m.assistants[pairKey(courseID, userID)] = &models.CourseAssistant{ID: uuid.NewString(), CourseID: courseID, UserID: userID, AssistantPermissions: perms}
}

type fakeRequests struct{ *memStore }

func (f fakeRequests) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	if r, ok := f.requests[id]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeRequests) FindDetail(ctx context.Context, id string) (*models.EnrollmentRequestDetail, error) {
	r, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.EnrollmentRequestDetail{EnrollmentRequest: *r}
	if c, ok := f.courses[r.CourseID]; ok {
		detail.CourseCode = &c.Code
		detail.CourseTitle = &c.Title
	}
	if u, ok := f.users[r.StudentID]; ok {
		detail.StudentName = u.Name
		detail.StudentEmail = u.Email
	}
	return detail, nil
}

func (f fakeRequests) FindPending(ctx context.Context, studentID, courseID string) (*models.EnrollmentRequest, error) {
	for _, r := range f.requests {
		if r.StudentID == studentID && r.CourseID == courseID && r.Status == models.RequestStatusPending {
			copy := *r
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeRequests) FindPendingWithTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (*models.EnrollmentRequest, error) {
	return f.FindPending(ctx, studentID, courseID)
}

func (f fakeRequests) Create(ctx context.Context, req *models.EnrollmentRequest) error {
	if f.pendingCount(req.StudentID, req.CourseID) > 0 {
		return repository.ErrDuplicate
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.RequestStatusPending
	req.RequestedAt = time.Now()
	copy := *req
	f.requests[req.ID] = &copy
	return nil
}

func (f fakeRequests) Resolve(ctx context.Context, req *models.EnrollmentRequest) error {
	stored, ok := f.requests[req.ID]
	if !ok || stored.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	copy := *req
	f.requests[req.ID] = &copy
	return nil
}

func (f fakeRequests) ResolveWithTx(ctx context.Context, tx *sqlx.Tx, req *models.EnrollmentRequest) error {
	return f.Resolve(ctx, req)
}

func (f fakeRequests) DeletePending(ctx context.Context, id string) error {
	stored, ok := f.requests[id]
	if !ok || stored.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	delete(f.requests, id)
	return nil
}

func (f fakeRequests) List(ctx context.Context, filter models.EnrollmentRequestFilter) ([]models.EnrollmentRequestDetail, error) {
	var out []models.EnrollmentRequestDetail
	for id, r := range f.requests {
		if filter.CourseID != "" && r.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.InstructorID != "" {
			c, ok := f.courses[r.CourseID]
			if !ok || c.InstructorID != filter.InstructorID {
				continue
			}
		}
		detail, _ := f.FindDetail(ctx, id)
		out = append(out, *detail)
	}
	return out, nil
}

type fakeRecords struct{ *memStore }

func (f fakeRecords) FindByUserID(ctx context.Context, userID string) (*models.StudentRecord, error) {
	if r, ok := f.records[userID]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeRecords) EnsureWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) (*models.StudentRecord, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if r, ok := f.records[user.ID]; ok {
		copy := *r
		return &copy, nil
	}
	record := &models.StudentRecord{ID: "rec-" + user.ID, UserID: user.ID, Name: user.Name, Email: user.Email}
	f.records[user.ID] = record
	copy := *record
	return &copy, nil
}

func (f fakeRecords) GetEnrollment(ctx context.Context, recordID, courseID string) (*models.StudentEnrollment, error) {
	status, ok := f.enrollments[pairKey(recordID, courseID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.StudentEnrollment{StudentRecordID: recordID, CourseID: courseID, Status: status}, nil
}

func (f fakeRecords) GetEnrollmentWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) (*models.StudentEnrollment, error) {
	return f.GetEnrollment(ctx, recordID, courseID)
}

func (f fakeRecords) UpsertEnrollmentWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string, status models.EnrollmentStatus) error {
	f.enrollments[pairKey(recordID, courseID)] = status
	return nil
}

func (f fakeRecords) AppendHistoryWithTx(ctx context.Context, tx *sqlx.Tx, entry *models.EnrollmentHistoryEntry) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	f.memStore.history = append(f.memStore.history, *entry)
	return nil
}

func (f fakeRecords) LatestEnrolledAtWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) (*time.Time, error) {
	var latest *time.Time
	for _, h := range f.memStore.history {
		if h.StudentRecordID == recordID && h.CourseID == courseID && h.Status == models.EnrollmentStatusEnrolled {
			at := h.EnrolledAt
			if latest == nil || at.After(*latest) {
				latest = &at
			}
		}
	}
	return latest, nil
}

func (f fakeRecords) ListEnrollments(ctx context.Context, recordID string) ([]models.StudentEnrollment, error) {
	var out []models.StudentEnrollment
	for key, status := range f.enrollments {
		for courseID := range f.courses {
			if key == pairKey(recordID, courseID) {
				out = append(out, models.StudentEnrollment{StudentRecordID: recordID, CourseID: courseID, Status: status})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (f fakeRecords) ListHistory(ctx context.Context, recordID string) ([]models.EnrollmentHistoryDetail, error) {
	var out []models.EnrollmentHistoryDetail
	for _, h := range f.historyFor(recordID) {
		out = append(out, models.EnrollmentHistoryDetail{EnrollmentHistoryEntry: h})
	}
	return out, nil
}

func (f fakeRecords) IncrementSubmittedWithTx(ctx context.Context, tx *sqlx.Tx, recordID, courseID string) error {
	f.submitted[pairKey(recordID, courseID)]++
	return nil
}

func (f fakeRecords) AppendGradeWithTx(ctx context.Context, tx *sqlx.Tx, point *models.GradePoint) error {
	f.grades = append(f.grades, *point)
	return nil
}

var errBoom = errors.New("boom")

func claims(id string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: role}
}

type fakeAssignments struct{ *memStore }

func (m *memStore) addAssignment(id, courseID string, due time.Time, maxScore float64) *models.Assignment {
	a := &models.Assignment{ID: id, CourseID: courseID, Title: "Assignment " + id, Instructions: "do it", DueDate: due, MaxScore: maxScore}
	m.assignments[id] = a
	return a
}

func (f fakeAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := f.assignments[id]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeAssignments) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range f.assignments {
		if a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (f fakeAssignments) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	copy := *assignment
	f.assignments[assignment.ID] = &copy
	return nil
}

func (f fakeAssignments) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := f.assignments[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *assignment
	f.assignments[assignment.ID] = &copy
	return nil
}

func (f fakeAssignments) Delete(ctx context.Context, id string) error {
	if _, ok := f.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.assignments, id)
	return nil
}

func (f fakeAssignments) upcoming(include func(courseID string) bool, studentID string) []models.UpcomingAssignment {
	var out []models.UpcomingAssignment
	for _, a := range f.assignments {
		c, ok := f.courses[a.CourseID]
		if !ok || c.Archived || !include(a.CourseID) {
			continue
		}
		item := models.UpcomingAssignment{AssignmentDetail: models.AssignmentDetail{Assignment: *a, CourseCode: c.Code, CourseTitle: c.Title}}
		if studentID != "" {
			for _, s := range f.submissions {
				if s.AssignmentID == a.ID && s.StudentID == studentID {
					item.IsSubmitted = true
				}
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

func (f fakeAssignments) ListForStudent(ctx context.Context, studentID string) ([]models.UpcomingAssignment, error) {
	return f.upcoming(func(courseID string) bool {
		_, ok := f.roster[courseID][studentID]
		return ok
	}, studentID), nil
}

func (f fakeAssignments) ListForStaff(ctx context.Context, userID string) ([]models.UpcomingAssignment, error) {
	return f.upcoming(func(courseID string) bool {
		if f.courses[courseID].InstructorID == userID {
			return true
		}
		_, ok := f.assistants[pairKey(courseID, userID)]
		return ok
	}, ""), nil
}

type fakeSubmissions struct{ *memStore }

func (f fakeSubmissions) detail(s *models.Submission) models.SubmissionDetail {
	d := models.SubmissionDetail{Submission: *s}
	if a, ok := f.assignments[s.AssignmentID]; ok {
		d.CourseID = a.CourseID
		d.AssignmentTitle = a.Title
		d.MaxScore = a.MaxScore
	}
	if u, ok := f.users[s.StudentID]; ok {
		d.StudentName = u.Name
		d.StudentEmail = u.Email
	}
	return d
}

func (f fakeSubmissions) FindDetail(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	s, ok := f.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := f.detail(s)
	return &d, nil
}

func (f fakeSubmissions) filter(match func(d models.SubmissionDetail) bool) []models.SubmissionDetail {
	var out []models.SubmissionDetail
	for _, s := range f.submissions {
		if d := f.detail(s); match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakeSubmissions) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	return f.filter(func(d models.SubmissionDetail) bool { return d.AssignmentID == assignmentID }), nil
}

func (f fakeSubmissions) ListByCourse(ctx context.Context, courseID string) ([]models.SubmissionDetail, error) {
	return f.filter(func(d models.SubmissionDetail) bool { return d.CourseID == courseID }), nil
}

func (f fakeSubmissions) ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error) {
	return f.filter(func(d models.SubmissionDetail) bool { return d.StudentID == studentID }), nil
}

func (f fakeSubmissions) CreateWithTx(ctx context.Context, tx *sqlx.Tx, submission *models.Submission) error {
	for _, s := range f.submissions {
		if s.AssignmentID == submission.AssignmentID && s.StudentID == submission.StudentID {
			return repository.ErrDuplicate
		}
	}
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	submission.SubmittedAt = time.Now()
	copy := *submission
	f.submissions[submission.ID] = &copy
	return nil
}

func (f fakeSubmissions) Exists(ctx context.Context, assignmentID, studentID string) (bool, error) {
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeSubmissions) UpdateGradeWithTx(ctx context.Context, tx *sqlx.Tx, submission *models.Submission) error {
	if _, ok := f.submissions[submission.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *submission
	f.submissions[submission.ID] = &copy
	return nil
}

func (m *memStore) addSubmission(id, assignmentID, studentID string) *models.Submission {
	s := &models.Submission{ID: id, AssignmentID: assignmentID, StudentID: studentID, Content: "answer", SubmittedAt: time.Now()}
	m.submissions[id] = s
	return s
}

func (m *memStore) addGrade(userID, courseID, term string, score float64) {
	record, ok := m.records[userID]
	if !ok {
		record = &models.StudentRecord{ID: "rec-" + userID, UserID: userID}
		m.records[userID] = record
	}
	m.grades = append(m.grades, models.GradePoint{
		ID:              uuid.NewString(),
		StudentRecordID: record.ID,
		CourseID:        courseID,
		TermLabel:       term,
		Score:           score,
		RecordedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(m.grades)) * time.Hour),
	})
}

type fakeStats struct{ *memStore }

func (f fakeStats) SubmissionCounts(ctx context.Context, courseID string, now time.Time) (*models.SubmissionStats, error) {
	stats := &models.SubmissionStats{CourseID: courseID}
	for key, n := range f.submitted {
		if strings.HasSuffix(key, "|"+courseID) {
			stats.Submitted += n
		}
	}
	for studentID := range f.roster[courseID] {
		for _, a := range f.assignments {
			if a.CourseID != courseID {
				continue
			}
			if done, _ := (fakeSubmissions{f.memStore}).Exists(ctx, a.ID, studentID); done {
				continue
			}
			if a.DueDate.Before(now) {
				stats.Overdue++
			} else {
				stats.Pending++
			}
		}
	}
	return stats, nil
}

func (f fakeStats) GradeHistory(ctx context.Context, recordID string) ([]models.GradeHistoryPoint, error) {
	var out []models.GradeHistoryPoint
	for _, g := range f.grades {
		if g.StudentRecordID != recordID {
			continue
		}
		point := models.GradeHistoryPoint{GradePoint: g}
		if c, ok := f.courses[g.CourseID]; ok {
			code, title := c.Code, c.Title
			point.CourseCode, point.CourseTitle = &code, &title
		}
		out = append(out, point)
	}
	return out, nil
}

func (f fakeStats) TermAverages(ctx context.Context, courseID string) ([]models.TermAverage, error) {
	var order []string
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, g := range f.grades {
		if courseID != "" && g.CourseID != courseID {
			continue
		}
		if counts[g.TermLabel] == 0 {
			order = append(order, g.TermLabel)
		}
		sums[g.TermLabel] += g.Score
		counts[g.TermLabel]++
	}
	out := make([]models.TermAverage, 0, len(order))
	for _, term := range order {
		out = append(out, models.TermAverage{Term: term, Average: sums[term] / float64(counts[term])})
	}
	return out, nil
}
