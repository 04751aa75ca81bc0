package models

import "time"

// Assignment is a graded task within a course.
type Assignment struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Title        string    `db:"title" json:"title"`
	Instructions string    `db:"instructions" json:"instructions"`
	DueDate      time.Time `db:"due_date" json:"due_date"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail adds course display fields.
type AssignmentDetail struct {
	Assignment
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
}

// Urgency colours a deadline for dashboards.
type Urgency string

const (
	UrgencyRed    Urgency = "red"
	UrgencyYellow Urgency = "yellow"
	UrgencyGreen  Urgency = "green"
)

// UrgencyFor maps whole days until due to an urgency level.
func UrgencyFor(daysUntilDue int) Urgency {
	switch {
	case daysUntilDue <= 0:
		return UrgencyRed
	case daysUntilDue <= 3:
		return UrgencyYellow
	default:
		return UrgencyGreen
	}
}

// DaysUntil counts calendar days in UTC between now and due.
func DaysUntil(now, due time.Time) int {
	y1, m1, d1 := now.UTC().Date()
	y2, m2, d2 := due.UTC().Date()
	start := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// UpcomingAssignment is a deadline entry.
type UpcomingAssignment struct {
	AssignmentDetail
	DaysUntilDue int     `json:"days_until_due"`
	Urgency      Urgency `json:"urgency"`
	IsSubmitted  bool    `json:"is_submitted"`
}
