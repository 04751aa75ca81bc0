package models

import "time"

// Course is an offering owned by one instructor with a bounded roster.
type Course struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	InstructorID string     `db:"instructor_id" json:"instructor_id"`
	Capacity     int        `db:"capacity" json:"capacity"`
	Archived     bool       `db:"archived" json:"archived"`
	ArchivedAt   *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CourseSummary is the catalog view of a course.
type CourseSummary struct {
	Course
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	EnrolledCount  int    `db:"enrolled_count" json:"enrolled_count"`
	SeatsAvailable int    `db:"-" json:"seats_available"`
}

// FillSeats derives SeatsAvailable from capacity and enrolled count.
func (s *CourseSummary) FillSeats() {
	s.SeatsAvailable = s.Capacity - s.EnrolledCount
	if s.SeatsAvailable < 0 {
		s.SeatsAvailable = 0
	}
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	ShowArchived bool
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// RosterEntry is one student in a course's enrolled set.
type RosterEntry struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// CourseStats aggregates roster size and graded performance.
type CourseStats struct {
	CourseID              string  `json:"course_id"`
	TotalEnrolledStudents int     `json:"total_enrolled_students"`
	TotalAssignments      int     `json:"total_assignments"`
	GradedSubmissions     int     `json:"graded_submissions"`
	AveragePerformance    float64 `json:"average_performance"`
}
