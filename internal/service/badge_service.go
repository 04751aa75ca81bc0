package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

const (
	highPerformerThreshold = 85.0
	improvementThreshold   = 10.0
	quickSubmitLead        = 72 * time.Hour
	quickSubmitShare       = 80
	engagedCourseCount     = 3
)

type courseAssignmentLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
}

type courseSubmissionLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.SubmissionDetail, error)
}

// BadgeService derives achievement badges from submissions and enrollments.
// Nothing is stored; badges are recomputed on every read.
type BadgeService struct {
	assignments courseAssignmentLister
	submissions courseSubmissionLister
	records     studentRecordReader
	users       userReader
	courses     courseReader
	logger      *zap.Logger
	now         func() time.Time
}

// NewBadgeService constructs BadgeService.
func NewBadgeService(assignments courseAssignmentLister, submissions courseSubmissionLister, records studentRecordReader, users userReader, courses courseReader, logger *zap.Logger) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{
		assignments: assignments,
		submissions: submissions,
		records:     records,
		users:       users,
		courses:     courses,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Definitions lists every badge.
func (s *BadgeService) Definitions() []models.Badge {
	return models.BadgeDefinitions()
}

// Definition returns one badge by id.
func (s *BadgeService) Definition(id string) (*models.Badge, error) {
	badge, ok := models.BadgeByID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "badge definition not found")
	}
	return &badge, nil
}

// StudentBadges evaluates student-wide badges and the course badges of every
// course the student has an enrollment record for.
func (s *BadgeService) StudentBadges(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.StudentBadges, error) {
	if err := authorizeStudentView(actor, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudentByID(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	result := &models.StudentBadges{
		StudentID:     student.ID,
		StudentBadges: []models.EarnedBadge{},
		CourseBadges:  map[string][]models.EarnedBadge{},
	}

	record, err := s.records.FindByUserID(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return nil, internalError(err, "failed to load student record")
	}
	enrollments, err := s.records.ListEnrollments(ctx, record.ID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollments")
	}

	now := s.now()
	active := 0
	for _, e := range enrollments {
		if e.Status != models.EnrollmentStatusDropped {
			active++
		}
	}
	if active >= engagedCourseCount {
		badge, _ := models.BadgeByID(models.BadgeEngagedLearner)
		result.StudentBadges = append(result.StudentBadges, models.EarnedBadge{Badge: badge, EarnedAt: now})
	}

	for _, e := range enrollments {
		earned, err := s.evaluateCourse(ctx, student.ID, e.CourseID, now)
		if err != nil {
			return nil, err
		}
		if len(earned) > 0 {
			result.CourseBadges[e.CourseID] = earned
		}
	}
	return result, nil
}

// CourseBadges evaluates the course-scoped badges of one student in one course.
func (s *BadgeService) CourseBadges(ctx context.Context, studentID, courseID string, actor *models.JWTClaims) ([]models.EarnedBadge, error) {
	if err := authorizeStudentView(actor, studentID); err != nil {
		return nil, err
	}
	student, err := loadStudentByID(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	course, err := loadCourseByID(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	return s.evaluateCourse(ctx, student.ID, course.ID, s.now())
}

func (s *BadgeService) evaluateCourse(ctx context.Context, studentID, courseID string, now time.Time) ([]models.EarnedBadge, error) {
	earned := []models.EarnedBadge{}
	assignments, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to load assignments")
	}
	if len(assignments) == 0 {
		return earned, nil
	}
	submissions, err := s.submissions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, internalError(err, "failed to load submissions")
	}

	progress := newCourseProgress(studentID, assignments, submissions)
	for _, badge := range models.BadgeDefinitions() {
		check, ok := courseBadgeChecks[badge.ID]
		if !ok || badge.Scope != models.BadgeScopeCourse {
			continue
		}
		if check(progress) {
			earned = append(earned, models.EarnedBadge{Badge: badge, CourseID: courseID, EarnedAt: now})
		}
	}
	s.logger.Debug("badges evaluated", zap.String("student_id", studentID), zap.String("course_id", courseID), zap.Int("earned", len(earned)))
	return earned, nil
}

// courseProgress is the per-course view badge checks read from.
type courseProgress struct {
	studentID   string
	assignments map[string]models.Assignment
	mine        []models.SubmissionDetail
	all         []models.SubmissionDetail
}

func newCourseProgress(studentID string, assignments []models.Assignment, submissions []models.SubmissionDetail) *courseProgress {
	p := &courseProgress{studentID: studentID, assignments: make(map[string]models.Assignment, len(assignments)), all: submissions}
	for _, a := range assignments {
		p.assignments[a.ID] = a
	}
	for _, sub := range submissions {
		if sub.StudentID == studentID {
			p.mine = append(p.mine, sub)
		}
	}
	sort.SliceStable(p.mine, func(i, j int) bool { return p.mine[i].SubmittedAt.Before(p.mine[j].SubmittedAt) })
	return p
}

func (p *courseProgress) graded() []models.SubmissionDetail {
	var out []models.SubmissionDetail
	for _, sub := range p.mine {
		if sub.Graded() {
			out = append(out, sub)
		}
	}
	return out
}

func (p *courseProgress) submittedAll() bool {
	return len(p.mine) == len(p.assignments)
}

func (p *courseProgress) due(sub models.SubmissionDetail) (time.Time, bool) {
	a, ok := p.assignments[sub.AssignmentID]
	return a.DueDate, ok
}

var courseBadgeChecks = map[string]func(*courseProgress) bool{
	models.BadgeHighPerformer: func(p *courseProgress) bool {
		var earned, possible float64
		for _, sub := range p.graded() {
			earned += *sub.Score
			possible += sub.MaxScore
		}
		return possible > 0 && earned/possible*100 >= highPerformerThreshold
	},
	models.BadgeConsistentLearner: func(p *courseProgress) bool {
		if !p.submittedAll() {
			return false
		}
		for _, sub := range p.mine {
			due, ok := p.due(sub)
			if !ok || sub.SubmittedAt.After(due) {
				return false
			}
		}
		return true
	},
	models.BadgeTopScorer: func(p *courseProgress) bool {
		type totals struct{ earned, possible float64 }
		byStudent := map[string]*totals{}
		for _, sub := range p.all {
			if !sub.Graded() {
				continue
			}
			t, ok := byStudent[sub.StudentID]
			if !ok {
				t = &totals{}
				byStudent[sub.StudentID] = t
			}
			t.earned += *sub.Score
			t.possible += sub.MaxScore
		}
		best := 0.0
		for _, t := range byStudent {
			if t.possible > 0 && t.earned/t.possible > best {
				best = t.earned / t.possible
			}
		}
		mine, ok := byStudent[p.studentID]
		return ok && best > 0 && mine.possible > 0 && mine.earned/mine.possible == best
	},
	models.BadgeImprovedPerformance: func(p *courseProgress) bool {
		graded := p.graded()
		if len(p.assignments) < 2 || len(graded) < 2 {
			return false
		}
		first, last := graded[0], graded[len(graded)-1]
		return percentage(*last.Score, last.MaxScore)-percentage(*first.Score, first.MaxScore) >= improvementThreshold
	},
	models.BadgeCourseCompletion: func(p *courseProgress) bool {
		return p.submittedAll()
	},
	models.BadgePerfectScore: func(p *courseProgress) bool {
		for _, sub := range p.graded() {
			if sub.MaxScore > 0 && *sub.Score >= sub.MaxScore {
				return true
			}
		}
		return false
	},
	models.BadgeQuickSubmitter: func(p *courseProgress) bool {
		if len(p.mine) == 0 {
			return false
		}
		early := 0
		for _, sub := range p.mine {
			if due, ok := p.due(sub); ok && due.Sub(sub.SubmittedAt) >= quickSubmitLead {
				early++
			}
		}
		return early*100 >= quickSubmitShare*len(p.mine)
	},
}
