package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
	"github.com/noah-isme/progress-tracker-api/pkg/export"
)

type reportRepository interface {
	StudentGradeRows(ctx context.Context, studentID string) ([]models.GradeRow, error)
	CourseGradeRows(ctx context.Context, courseID string) ([]models.GradeRow, error)
}

// ReportConfig controls report exports.
type ReportConfig struct {
	Enabled  bool
	PDFTitle string
}

// ReportService renders grade reports for staff.
type ReportService struct {
	repo    reportRepository
	users   userReader
	courses courseReader
	logger  *zap.Logger
	config  ReportConfig
}

// NewReportService constructs ReportService.
func NewReportService(repo reportRepository, users userReader, courses courseReader, logger *zap.Logger, config ReportConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PDFTitle == "" {
		config.PDFTitle = "Grade Report"
	}
	return &ReportService{repo: repo, users: users, courses: courses, logger: logger, config: config}
}

// StudentReport renders one student's scores across their courses.
func (s *ReportService) StudentReport(ctx context.Context, studentID string, format models.ReportFormat, actor *models.JWTClaims) (*models.ReportFile, error) {
	renderer, err := s.prepare(format, actor)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.StudentGradeRows(ctx, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to load student grades")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade data for student")
	}

	data := studentDataset(rows)
	title := fmt.Sprintf("%s - %s", s.config.PDFTitle, student.Name)
	return s.render(renderer, data, title, "student-report-"+slug(student.Name))
}

// CourseReport renders the grade matrix of a course roster.
func (s *ReportService) CourseReport(ctx context.Context, courseID string, format models.ReportFormat, actor *models.JWTClaims) (*models.ReportFile, error) {
	renderer, err := s.prepare(format, actor)
	if err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.CourseGradeRows(ctx, course.ID)
	if err != nil {
		return nil, internalError(err, "failed to load course grades")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade data for course")
	}

	data := courseDataset(rows)
	title := fmt.Sprintf("%s - %s %s", s.config.PDFTitle, course.Code, course.Title)
	return s.render(renderer, data, title, "course-report-"+slug(course.Code))
}

// ValidateStudent reports whether a student report would contain data.
func (s *ReportService) ValidateStudent(ctx context.Context, studentID string) (*models.ReportValidation, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.StudentGradeRows(ctx, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to load student grades")
	}
	return validation(len(rows), "assignments"), nil
}

// ValidateCourse reports whether a course report would contain data.
func (s *ReportService) ValidateCourse(ctx context.Context, courseID string) (*models.ReportValidation, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.CourseGradeRows(ctx, course.ID)
	if err != nil {
		return nil, internalError(err, "failed to load course grades")
	}
	return validation(countStudents(rows), "students"), nil
}

func (s *ReportService) prepare(format models.ReportFormat, actor *models.JWTClaims) (export.Renderer, error) {
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "reports are disabled")
	}
	if actor == nil || (actor.Role != models.RoleTeacher && actor.Role != models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can export reports")
	}
	if format == "" {
		format = models.ReportFormatCSV
	}
	renderer, err := export.ForFormat(string(format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	return renderer, nil
}

func (s *ReportService) render(renderer export.Renderer, data export.Dataset, title, name string) (*models.ReportFile, error) {
	body, err := renderer.Render(data, title)
	if err != nil {
		return nil, internalError(err, "failed to render report")
	}
	return &models.ReportFile{
		Filename:    name + "." + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *ReportService) loadStudent(ctx context.Context, id string) (*models.User, error) {
	return loadStudentByID(ctx, s.users, id)
}

func (s *ReportService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	return loadCourseByID(ctx, s.courses, id)
}

const (
	colCourse     = "Course"
	colAssignment = "Assignment"
	colScore      = "Score"
	colMaxScore   = "Max Score"
	colPercentage = "Percentage"
	colSubmitted  = "Submitted"
	colStudent    = "Student"
	colEmail      = "Email"
	colTotal      = "Total"
)

// studentDataset lists one line per assignment. Missing scores count as zero.
func studentDataset(rows []models.GradeRow) export.Dataset {
	data := export.Dataset{Headers: []string{colCourse, colAssignment, colScore, colMaxScore, colPercentage, colSubmitted}}
	var earned, possible float64
	for _, row := range rows {
		score := scoreOf(row)
		earned += score
		possible += row.MaxScore
		data.Rows = append(data.Rows, map[string]string{
			colCourse:     row.CourseCode,
			colAssignment: row.AssignmentTitle,
			colScore:      formatNumber(score),
			colMaxScore:   formatNumber(row.MaxScore),
			colPercentage: formatNumber(percentage(score, row.MaxScore)),
			colSubmitted:  yesNo(row.Submitted),
		})
	}
	data.Summary = []export.SummaryLine{
		{Label: "Total score", Value: formatNumber(earned) + " / " + formatNumber(possible)},
		{Label: "Average", Value: formatNumber(percentage(earned, possible)) + "%"},
	}
	return data
}

// courseDataset pivots rows into one line per student with a column per assignment.
func courseDataset(rows []models.GradeRow) export.Dataset {
	type studentTotals struct {
		line     map[string]string
		earned   float64
		possible float64
	}

	var titles []string
	columns := map[string]string{}
	taken := map[string]bool{}
	var order []string
	students := map[string]*studentTotals{}

	for _, row := range rows {
		title, ok := columns[row.AssignmentID]
		if !ok {
			title = row.AssignmentTitle
			for n := 2; taken[title]; n++ {
				title = fmt.Sprintf("%s #%d", row.AssignmentTitle, n)
			}
			taken[title] = true
			columns[row.AssignmentID] = title
			titles = append(titles, title)
		}
		st, ok := students[row.StudentID]
		if !ok {
			st = &studentTotals{line: map[string]string{colStudent: row.StudentName, colEmail: row.StudentEmail}}
			students[row.StudentID] = st
			order = append(order, row.StudentID)
		}
		score := scoreOf(row)
		st.line[title] = formatNumber(score)
		st.earned += score
		st.possible += row.MaxScore
	}

	headers := append([]string{colStudent, colEmail}, titles...)
	headers = append(headers, colTotal, colPercentage)
	data := export.Dataset{Headers: headers}

	var sum float64
	for _, id := range order {
		st := students[id]
		pct := percentage(st.earned, st.possible)
		sum += pct
		st.line[colTotal] = formatNumber(st.earned)
		st.line[colPercentage] = formatNumber(pct)
		data.Rows = append(data.Rows, st.line)
	}

	classAverage := 0.0
	if len(order) > 0 {
		classAverage = round2(sum / float64(len(order)))
	}
	data.Summary = []export.SummaryLine{
		{Label: "Students", Value: strconv.Itoa(len(order))},
		{Label: "Assignments", Value: strconv.Itoa(len(titles))},
		{Label: "Class average", Value: formatNumber(classAverage) + "%"},
	}
	return data
}

func validation(count int, noun string) *models.ReportValidation {
	if count == 0 {
		return &models.ReportValidation{HasData: false, Message: "No " + noun + " found for report", Count: 0}
	}
	return &models.ReportValidation{HasData: true, Message: fmt.Sprintf("%d %s found", count, noun), Count: count}
}

func countStudents(rows []models.GradeRow) int {
	seen := map[string]bool{}
	for _, row := range rows {
		seen[row.StudentID] = true
	}
	return len(seen)
}

func scoreOf(row models.GradeRow) float64 {
	if row.Score == nil {
		return 0
	}
	return *row.Score
}

func percentage(earned, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return round2(earned / possible * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func slug(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	var b strings.Builder
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "report"
	}
	return b.String()
}
