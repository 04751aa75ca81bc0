package models

import "time"

// StudentRecord is the per-student academic ledger, keyed by user id.
type StudentRecord struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentEnrollment is the current membership state for one course.
type StudentEnrollment struct {
	StudentRecordID string           `db:"student_record_id" json:"student_record_id"`
	CourseID        string           `db:"course_id" json:"course_id"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentHistoryEntry is one append-only membership event.
type EnrollmentHistoryEntry struct {
	ID              string           `db:"id" json:"id"`
	StudentRecordID string           `db:"student_record_id" json:"student_record_id"`
	CourseID        string           `db:"course_id" json:"course_id"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt      time.Time        `db:"enrolled_at" json:"enrolled_at"`
	UnenrolledAt    *time.Time       `db:"unenrolled_at" json:"unenrolled_at,omitempty"`
	Reason          *string          `db:"reason" json:"reason,omitempty"`
}

// EnrollmentHistoryDetail adds course display fields to a history entry.
type EnrollmentHistoryDetail struct {
	EnrollmentHistoryEntry
	CourseCode  *string `db:"course_code" json:"course_code,omitempty"`
	CourseTitle *string `db:"course_title" json:"course_title,omitempty"`
}

// GradePoint is one entry of a student's grade history.
type GradePoint struct {
	ID              string    `db:"id" json:"id"`
	StudentRecordID string    `db:"student_record_id" json:"student_record_id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	TermLabel       string    `db:"term_label" json:"term_label"`
	Score           float64   `db:"score" json:"score"`
	RecordedAt      time.Time `db:"recorded_at" json:"recorded_at"`
}

// StudentHistory is the response for a student's full enrollment log.
type StudentHistory struct {
	Record      StudentRecord             `json:"record"`
	Enrollments []StudentEnrollment       `json:"enrollments"`
	History     []EnrollmentHistoryDetail `json:"history"`
}
