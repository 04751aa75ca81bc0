package dto

import "github.com/noah-isme/progress-tracker-api/internal/models"

// ReportQuery binds the ?format= query on report downloads.
type ReportQuery struct {
	Format models.ReportFormat `form:"format" validate:"omitempty,oneof=csv pdf"`
}
