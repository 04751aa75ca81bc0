package models

import "time"

// Submission is a student's answer to an assignment.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Content      string    `db:"content" json:"content"`
	Score        *float64  `db:"score" json:"score,omitempty"`
	Feedback     *string   `db:"feedback" json:"feedback,omitempty"`
	LearningTips *string   `db:"learning_tips" json:"learning_tips,omitempty"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Graded reports whether a score has been recorded.
func (s Submission) Graded() bool { return s.Score != nil }

// SubmissionDetail joins assignment and student info.
type SubmissionDetail struct {
	Submission
	CourseID        string  `db:"course_id" json:"course_id"`
	AssignmentTitle string  `db:"assignment_title" json:"assignment_title"`
	MaxScore        float64 `db:"max_score" json:"max_score"`
	StudentName     string  `db:"student_name" json:"student_name"`
	StudentEmail    string  `db:"student_email" json:"student_email"`
}

// GradeSubmissionRequest sets any of score, feedback and tips.
type GradeSubmissionRequest struct {
	Score        *float64 `json:"score" validate:"omitempty,gte=0"`
	Feedback     *string  `json:"feedback" validate:"omitempty,max=4000"`
	LearningTips *string  `json:"learning_tips" validate:"omitempty,max=4000"`
}
