package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type statsRepository interface {
	SubmissionCounts(ctx context.Context, courseID string, now time.Time) (*models.SubmissionStats, error)
	GradeHistory(ctx context.Context, recordID string) ([]models.GradeHistoryPoint, error)
	TermAverages(ctx context.Context, courseID string) ([]models.TermAverage, error)
}

type studentRecordReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentRecord, error)
	ListEnrollments(ctx context.Context, recordID string) ([]models.StudentEnrollment, error)
}

// StatsService serves progress charts, score trends and submission counters.
type StatsService struct {
	repo    statsRepository
	courses courseReader
	users   userReader
	records studentRecordReader
	access  *CourseAccess
	logger  *zap.Logger
	now     func() time.Time
}

// NewStatsService constructs StatsService.
func NewStatsService(repo statsRepository, courses courseReader, users userReader, records studentRecordReader, access *CourseAccess, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		repo:    repo,
		courses: courses,
		users:   users,
		records: records,
		access:  access,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SubmissionStats counts submitted, pending and overdue work across a course roster.
func (s *StatsService) SubmissionStats(ctx context.Context, courseID string, actor *models.JWTClaims) (*models.SubmissionStats, error) {
	course, err := loadCourseByID(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, course, actor, models.PermissionViewGrades); err != nil {
		return nil, err
	}
	stats, err := s.repo.SubmissionCounts(ctx, course.ID, s.now())
	if err != nil {
		return nil, internalError(err, "failed to load submission stats")
	}
	stats.CourseID = course.ID
	stats.CourseCode = course.Code
	stats.CourseTitle = course.Title
	return stats, nil
}

// Progress returns a student's grade history and per-course averages.
func (s *StatsService) Progress(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.StudentProgress, error) {
	if err := authorizeStudentView(actor, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudentByID(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	progress := &models.StudentProgress{
		StudentID:   student.ID,
		StudentName: student.Name,
		Courses:     []models.CourseProgress{},
		Points:      []models.GradeHistoryPoint{},
	}

	record, err := s.records.FindByUserID(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progress, nil
		}
		return nil, internalError(err, "failed to load student record")
	}
	points, err := s.repo.GradeHistory(ctx, record.ID)
	if err != nil {
		return nil, internalError(err, "failed to load grade history")
	}
	enrollments, err := s.records.ListEnrollments(ctx, record.ID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments")
	}
	if points != nil {
		progress.Points = points
	}

	for _, enrollment := range enrollments {
		entry := models.CourseProgress{CourseID: enrollment.CourseID, Status: string(enrollment.Status), Grades: []float64{}}
		course, err := s.courses.FindByID(ctx, enrollment.CourseID)
		switch {
		case err == nil:
			entry.CourseCode = course.Code
			entry.CourseTitle = course.Title
		case !errors.Is(err, sql.ErrNoRows):
			return nil, internalError(err, "failed to load course")
		}
		var sum float64
		for _, p := range points {
			if p.CourseID == enrollment.CourseID {
				entry.Grades = append(entry.Grades, p.Score)
				sum += p.Score
			}
		}
		if len(entry.Grades) > 0 {
			entry.Average = round2(sum / float64(len(entry.Grades)))
		}
		progress.Courses = append(progress.Courses, entry)
	}
	return progress, nil
}

// Trends compares a student's per-term averages with the class averages,
// optionally restricted to one course.
func (s *StatsService) Trends(ctx context.Context, studentID, courseID string, actor *models.JWTClaims) (*models.ScoreTrend, error) {
	if err := authorizeStudentView(actor, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudentByID(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	if courseID != "" {
		course, err := loadCourseByID(ctx, s.courses, courseID)
		if err != nil {
			return nil, err
		}
		courseID = course.ID
	}

	var points []models.GradeHistoryPoint
	record, err := s.records.FindByUserID(ctx, student.ID)
	switch {
	case err == nil:
		points, err = s.repo.GradeHistory(ctx, record.ID)
		if err != nil {
			return nil, internalError(err, "failed to load grade history")
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, internalError(err, "failed to load student record")
	}
	class, err := s.repo.TermAverages(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to load class averages")
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, p := range points {
		if courseID != "" && p.CourseID != courseID {
			continue
		}
		sums[p.TermLabel] += p.Score
		counts[p.TermLabel]++
	}

	trend := &models.ScoreTrend{
		StudentID:     student.ID,
		CourseID:      courseID,
		StudentSeries: make([]models.TermScore, 0, len(class)),
		ClassSeries:   make([]models.TermScore, 0, len(class)),
		GeneratedAt:   s.now(),
	}
	for _, term := range class {
		average := round2(term.Average)
		trend.ClassSeries = append(trend.ClassSeries, models.TermScore{Term: term.Term, Score: &average})
		point := models.TermScore{Term: term.Term}
		if n := counts[term.Term]; n > 0 {
			score := round2(sums[term.Term] / float64(n))
			point.Score = &score
		}
		trend.StudentSeries = append(trend.StudentSeries, point)
	}
	return trend, nil
}

// authorizeStudentView lets students read their own data and staff read anyone's.
func authorizeStudentView(actor *models.JWTClaims, studentID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.UserID == studentID || actor.Role == models.RoleTeacher || actor.Role == models.RoleAdmin {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "cannot view another student's progress")
}

func loadStudentByID(ctx context.Context, users userReader, id string) (*models.User, error) {
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return user, nil
}

func loadCourseByID(ctx context.Context, courses courseReader, id string) (*models.Course, error) {
	course, err := courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}
	return course, nil
}
