package models

import "time"

// SubmissionStats summarises submission progress across a course roster.
// Pending and overdue count (student, assignment) pairs without a submission.
type SubmissionStats struct {
	CourseID    string `json:"course_id"`
	CourseCode  string `json:"course_code"`
	CourseTitle string `json:"course_title"`
	Submitted   int    `db:"submitted" json:"submitted"`
	Pending     int    `db:"pending" json:"pending"`
	Overdue     int    `db:"overdue" json:"overdue"`
}

// GradeHistoryPoint is a grade history entry with course display fields.
type GradeHistoryPoint struct {
	GradePoint
	CourseCode  *string `db:"course_code" json:"course_code,omitempty"`
	CourseTitle *string `db:"course_title" json:"course_title,omitempty"`
}

// TermAverage is the mean score recorded under one term label.
type TermAverage struct {
	Term    string  `db:"term_label" json:"term"`
	Average float64 `db:"average" json:"average"`
}

// CourseProgress aggregates a student's grades within one course.
type CourseProgress struct {
	CourseID    string    `json:"course_id"`
	CourseCode  string    `json:"course_code"`
	CourseTitle string    `json:"course_title"`
	Status      string    `json:"status"`
	Average     float64   `json:"average"`
	Grades      []float64 `json:"grades"`
}

// StudentProgress is the progress chart payload of a student.
type StudentProgress struct {
	StudentID   string              `json:"student_id"`
	StudentName string              `json:"student_name"`
	Courses     []CourseProgress    `json:"courses"`
	Points      []GradeHistoryPoint `json:"points"`
}

// TermScore is one point of a trend series. Score is nil when nothing was
// recorded for the term.
type TermScore struct {
	Term  string   `json:"term"`
	Score *float64 `json:"score"`
}

// ScoreTrend compares a student's per-term averages with the class.
type ScoreTrend struct {
	StudentID     string      `json:"student_id"`
	CourseID      string      `json:"course_id,omitempty"`
	StudentSeries []TermScore `json:"student_series"`
	ClassSeries   []TermScore `json:"class_series"`
	GeneratedAt   time.Time   `json:"generated_at"`
}
