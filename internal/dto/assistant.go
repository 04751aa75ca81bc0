package dto

import "github.com/noah-isme/progress-tracker-api/internal/models"

// AssignAssistantRequest adds a user as course assistant. Omitted permission
// flags fall back to the defaults.
type AssignAssistantRequest struct {
	UserID      string                           `json:"userId" validate:"required,uuid"`
	Permissions models.AssistantPermissionsPatch `json:"permissions"`
}
