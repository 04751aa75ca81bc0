package models

import "time"

// CoursePermission names a capability that can be delegated to an assistant.
type CoursePermission string

const (
	PermissionViewStudents      CoursePermission = "view_students"
	PermissionViewGrades        CoursePermission = "view_grades"
	PermissionEditGrades        CoursePermission = "edit_grades"
	PermissionManageAssignments CoursePermission = "manage_assignments"
	PermissionViewAssignments   CoursePermission = "view_assignments"
	PermissionManageEnrollments CoursePermission = "manage_enrollments"
	// PermissionManageCourse is never delegated; only the instructor or an admin holds it.
	PermissionManageCourse CoursePermission = "manage_course"
)

// AssistantPermissions is the flag bundle stored per course assistant.
type AssistantPermissions struct {
	CanViewStudents      bool `db:"can_view_students" json:"can_view_students"`
	CanViewGrades        bool `db:"can_view_grades" json:"can_view_grades"`
	CanEditGrades        bool `db:"can_edit_grades" json:"can_edit_grades"`
	CanManageAssignments bool `db:"can_manage_assignments" json:"can_manage_assignments"`
	CanViewAssignments   bool `db:"can_view_assignments" json:"can_view_assignments"`
	CanManageEnrollments bool `db:"can_manage_enrollments" json:"can_manage_enrollments"`
}

// DefaultAssistantPermissions grants read access to students and assignments only.
func DefaultAssistantPermissions() AssistantPermissions {
	return AssistantPermissions{
		CanViewStudents:    true,
		CanViewAssignments: true,
	}
}

// Allows reports whether the bundle grants perm.
func (p AssistantPermissions) Allows(perm CoursePermission) bool {
	switch perm {
	case PermissionViewStudents:
		return p.CanViewStudents
	case PermissionViewGrades:
		return p.CanViewGrades || p.CanEditGrades
	case PermissionEditGrades:
		return p.CanEditGrades
	case PermissionManageAssignments:
		return p.CanManageAssignments
	case PermissionViewAssignments:
		return p.CanViewAssignments || p.CanManageAssignments
	case PermissionManageEnrollments:
		return p.CanManageEnrollments
	default:
		return false
	}
}

// AssistantPermissionsPatch carries a partial permission update.
type AssistantPermissionsPatch struct {
	CanViewStudents      *bool `json:"can_view_students"`
	CanViewGrades        *bool `json:"can_view_grades"`
	CanEditGrades        *bool `json:"can_edit_grades"`
	CanManageAssignments *bool `json:"can_manage_assignments"`
	CanViewAssignments   *bool `json:"can_view_assignments"`
	CanManageEnrollments *bool `json:"can_manage_enrollments"`
}

// Merge applies the non-nil fields of patch on top of p.
func (p AssistantPermissions) Merge(patch AssistantPermissionsPatch) AssistantPermissions {
	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&p.CanViewStudents, patch.CanViewStudents)
	apply(&p.CanViewGrades, patch.CanViewGrades)
	apply(&p.CanEditGrades, patch.CanEditGrades)
	apply(&p.CanManageAssignments, patch.CanManageAssignments)
	apply(&p.CanViewAssignments, patch.CanViewAssignments)
	apply(&p.CanManageEnrollments, patch.CanManageEnrollments)
	return p
}

// CourseAssistant links a user to a course with delegated permissions.
type CourseAssistant struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	UserID   string `db:"user_id" json:"user_id"`
	AssistantPermissions
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// CourseAssistantDetail adds the assistant's identity for listings.
type CourseAssistantDetail struct {
	CourseAssistant
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}
