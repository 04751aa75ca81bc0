package dto

import "time"

// CreateAssignmentRequest defines payload for creating an assignment.
type CreateAssignmentRequest struct {
	Title        string    `json:"title" validate:"required,max=200"`
	Instructions string    `json:"instructions" validate:"required"`
	DueDate      time.Time `json:"dueDate" validate:"required"`
	MaxScore     float64   `json:"maxScore" validate:"required,gt=0"`
}

// UpdateAssignmentRequest patches an assignment.
type UpdateAssignmentRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Instructions *string    `json:"instructions" validate:"omitempty,min=1"`
	DueDate      *time.Time `json:"dueDate"`
	MaxScore     *float64   `json:"maxScore" validate:"omitempty,gt=0"`
}

// DuplicateAssignmentRequest copies an assignment into other courses.
type DuplicateAssignmentRequest struct {
	CourseIDs []string   `json:"courseIds" validate:"required,min=1,dive,uuid"`
	DueDate   *time.Time `json:"dueDate"`
}

// SubmitAssignmentRequest carries a student's answer.
type SubmitAssignmentRequest struct {
	Content string `json:"content" validate:"required"`
}
