package models

import "time"

// EnrollmentRequestStatus is the lifecycle state of an enrollment request.
type EnrollmentRequestStatus string

const (
	RequestStatusPending  EnrollmentRequestStatus = "pending"
	RequestStatusApproved EnrollmentRequestStatus = "approved"
	RequestStatusRejected EnrollmentRequestStatus = "rejected"
	// RequestStatusEnrolled marks a request resolved because the student was
	// already on the roster when it was processed.
	RequestStatusEnrolled EnrollmentRequestStatus = "enrolled"
)

// CanTransitionTo reports whether a request may move from s to next. Only a
// pending request moves, and never back to pending.
func (s EnrollmentRequestStatus) CanTransitionTo(next EnrollmentRequestStatus) bool {
	if s != RequestStatusPending {
		return false
	}
	switch next {
	case RequestStatusApproved, RequestStatusRejected, RequestStatusEnrolled:
		return true
	}
	return false
}

// EnrollmentRequest is a student's ask to join a course.
type EnrollmentRequest struct {
	ID              string                  `db:"id" json:"id"`
	StudentID       string                  `db:"student_id" json:"student_id"`
	CourseID        string                  `db:"course_id" json:"course_id"`
	Status          EnrollmentRequestStatus `db:"status" json:"status"`
	Message         *string                 `db:"message" json:"message,omitempty"`
	RejectionReason *string                 `db:"rejection_reason" json:"rejection_reason,omitempty"`
	RequestedAt     time.Time               `db:"requested_at" json:"requested_at"`
	ProcessedAt     *time.Time              `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy     *string                 `db:"processed_by" json:"processed_by,omitempty"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// EnrollmentRequestDetail enriches a request with course and student info.
// Course columns are nullable because deleted courses orphan their requests.
type EnrollmentRequestDetail struct {
	EnrollmentRequest
	CourseCode   *string `db:"course_code" json:"course_code,omitempty"`
	CourseTitle  *string `db:"course_title" json:"course_title,omitempty"`
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
}

// EnrollmentRequestFilter narrows request listings.
type EnrollmentRequestFilter struct {
	CourseID     string
	StudentID    string
	InstructorID string
	Status       EnrollmentRequestStatus
}

// EnrollmentStatus is a student's membership state in one course.
type EnrollmentStatus string

const (
	// EnrollmentStatusNone is the implicit state before any enrollment event.
	EnrollmentStatusNone      EnrollmentStatus = ""
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// CanTransitionTo encodes none -> enrolled -> {dropped, completed} and
// dropped -> enrolled for re-enrollment.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	switch s {
	case EnrollmentStatusNone, EnrollmentStatusDropped:
		return next == EnrollmentStatusEnrolled
	case EnrollmentStatusEnrolled:
		return next == EnrollmentStatusDropped || next == EnrollmentStatusCompleted
	}
	return false
}

// EnrollmentStatusView answers "where do I stand in this course".
type EnrollmentStatusView struct {
	CourseID         string             `json:"course_id"`
	Enrolled         bool               `json:"enrolled"`
	EnrollmentStatus EnrollmentStatus   `json:"enrollment_status,omitempty"`
	PendingRequest   *EnrollmentRequest `json:"pending_request,omitempty"`
}
