package dto

// CreateCourseRequest defines payload for creating a course.
type CreateCourseRequest struct {
	Code         string `json:"code" validate:"required,max=32"`
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=4000"`
	Capacity     *int   `json:"capacity" validate:"omitempty,gte=0,lte=10000"`
	InstructorID string `json:"instructorId" validate:"omitempty,uuid"`
}

// UpdateCourseRequest patches course metadata. Nil fields are left unchanged.
type UpdateCourseRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=0,lte=10000"`
}

// CourseListQuery binds GET /courses query parameters.
type CourseListQuery struct {
	ShowArchived bool   `form:"showArchived"`
	InstructorID string `form:"instructorId"`
	Search       string `form:"search"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
	SortBy       string `form:"sortBy"`
	SortOrder    string `form:"sortOrder"`
}
