package dto

// RequestEnrollmentRequest is the optional note a student attaches to a request.
type RequestEnrollmentRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

// RejectEnrollmentRequest captures PATCH /enrollment-requests/:id/reject payload.
type RejectEnrollmentRequest struct {
	RejectionReason string `json:"rejectionReason" validate:"max=1000"`
}

// UnenrollRequest captures POST /courses/:courseId/unenroll payload.
type UnenrollRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}
