package models

// ReportFormat selects the export renderer.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// GradeRow is one (student, assignment) cell used to build reports. Score is
// nil when the student has not submitted or has not been graded.
type GradeRow struct {
	StudentID       string   `db:"student_id"`
	StudentName     string   `db:"student_name"`
	StudentEmail    string   `db:"student_email"`
	CourseID        string   `db:"course_id"`
	CourseCode      string   `db:"course_code"`
	AssignmentID    string   `db:"assignment_id"`
	AssignmentTitle string   `db:"assignment_title"`
	MaxScore        float64  `db:"max_score"`
	Score           *float64 `db:"score"`
	Submitted       bool     `db:"submitted"`
}

// ReportValidation tells a client whether an export would have content.
type ReportValidation struct {
	HasData bool   `json:"has_data"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ReportFile is a rendered export ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
