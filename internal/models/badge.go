package models

import (
	"strings"
	"time"
)

// BadgeScope says whether a badge is earned per course or per student.
type BadgeScope string

const (
	BadgeScopeCourse  BadgeScope = "course"
	BadgeScopeStudent BadgeScope = "student"
)

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	BadgeCategoryAcademic    BadgeCategory = "academic"
	BadgeCategoryConsistency BadgeCategory = "consistency"
	BadgeCategoryGrowth      BadgeCategory = "growth"
	BadgeCategoryCompletion  BadgeCategory = "completion"
	BadgeCategoryEngagement  BadgeCategory = "engagement"
)

const (
	BadgeHighPerformer       = "high_performer"
	BadgeConsistentLearner   = "consistent_learner"
	BadgeTopScorer           = "top_scorer"
	BadgeImprovedPerformance = "improved_performance"
	BadgeCourseCompletion    = "course_completion"
	BadgePerfectScore        = "perfect_score"
	BadgeEngagedLearner      = "engaged_learner"
	BadgeQuickSubmitter      = "quick_submitter"
)

// Badge is a static achievement definition.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Color       string        `json:"color"`
	Category    BadgeCategory `json:"category"`
	Scope       BadgeScope    `json:"scope"`
}

// EarnedBadge is a badge a student currently qualifies for.
type EarnedBadge struct {
	Badge
	CourseID string    `json:"course_id,omitempty"`
	EarnedAt time.Time `json:"earned_at"`
}

// StudentBadges lists student-wide badges and course badges keyed by course id.
type StudentBadges struct {
	StudentID     string                   `json:"student_id"`
	StudentBadges []EarnedBadge            `json:"student_badges"`
	CourseBadges  map[string][]EarnedBadge `json:"course_badges"`
}

var badgeDefinitions = []Badge{
	{ID: BadgeHighPerformer, Name: "High Performer", Description: "Achieved average score of 85% or higher", Icon: "⭐", Color: "#FFD700", Category: BadgeCategoryAcademic, Scope: BadgeScopeCourse},
	{ID: BadgeConsistentLearner, Name: "Consistent Learner", Description: "Submitted all assignments on time", Icon: "📅", Color: "#4CAF50", Category: BadgeCategoryConsistency, Scope: BadgeScopeCourse},
	{ID: BadgeTopScorer, Name: "Top Scorer", Description: "Highest overall score in the course", Icon: "🏆", Color: "#FF6B6B", Category: BadgeCategoryAcademic, Scope: BadgeScopeCourse},
	{ID: BadgeImprovedPerformance, Name: "Improved Performance", Description: "Showed significant improvement across assessments", Icon: "📈", Color: "#2196F3", Category: BadgeCategoryGrowth, Scope: BadgeScopeCourse},
	{ID: BadgeCourseCompletion, Name: "Course Completion", Description: "Completed all assignments in the course", Icon: "✅", Color: "#9C27B0", Category: BadgeCategoryCompletion, Scope: BadgeScopeCourse},
	{ID: BadgePerfectScore, Name: "Perfect Score", Description: "Achieved 100% on an assignment", Icon: "💯", Color: "#FF9800", Category: BadgeCategoryAcademic, Scope: BadgeScopeCourse},
	{ID: BadgeEngagedLearner, Name: "Engaged Learner", Description: "Active across multiple courses", Icon: "🚀", Color: "#00BCD4", Category: BadgeCategoryEngagement, Scope: BadgeScopeStudent},
	{ID: BadgeQuickSubmitter, Name: "Quick Submitter", Description: "Submitted assignments well before deadline", Icon: "⚡", Color: "#FFEB3B", Category: BadgeCategoryConsistency, Scope: BadgeScopeCourse},
}

// BadgeDefinitions returns a copy of every badge definition in display order.
func BadgeDefinitions() []Badge {
	out := make([]Badge, len(badgeDefinitions))
	copy(out, badgeDefinitions)
	return out
}

// BadgeByID looks a definition up case-insensitively.
func BadgeByID(id string) (Badge, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, b := range badgeDefinitions {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// BadgesInCategory returns the definitions of one category.
func BadgesInCategory(category BadgeCategory) []Badge {
	var out []Badge
	for _, b := range badgeDefinitions {
		if b.Category == category {
			out = append(out, b)
		}
	}
	return out
}
