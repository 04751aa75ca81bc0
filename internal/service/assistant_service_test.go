package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/progress-tracker-api/internal/dto"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

func TestAssistantLifecycle(t *testing.T) {
	store := newMemStore()
	teacherID := uuid.NewString()
	helperID := uuid.NewString()
	store.addUser(teacherID, "Teacher", models.RoleTeacher)
	store.addUser(helperID, "Helper", models.RoleTeacher)
	store.addCourse("c1", teacherID, 10)
	svc := NewAssistantService(fakeAssistants{store}, fakeCourses{store}, fakeUsers{store}, NewCourseAccess(fakeAssistants{store}), nil, nil)
	ctx := context.Background()
	teacher := claims(teacherID, models.RoleTeacher)

	grade := true
	assistant, err := svc.Assign(ctx, "c1", dto.AssignAssistantRequest{
		UserID:      helperID,
		Permissions: models.AssistantPermissionsPatch{CanEditGrades: &grade},
	}, teacher)
	require.NoError(t, err)
	assert.True(t, assistant.CanViewStudents)
	assert.True(t, assistant.CanViewAssignments)
	assert.True(t, assistant.CanEditGrades)
	assert.False(t, assistant.CanManageEnrollments)

	_, err = svc.Assign(ctx, "c1", dto.AssignAssistantRequest{UserID: helperID}, teacher)
	assertCode(t, err, appErrors.ErrConflict)

	_, err = svc.Assign(ctx, "c1", dto.AssignAssistantRequest{UserID: teacherID}, teacher)
	assertCode(t, err, appErrors.ErrValidation)

	_, err = svc.Assign(ctx, "c1", dto.AssignAssistantRequest{UserID: uuid.NewString()}, teacher)
	assertCode(t, err, appErrors.ErrNotFound)

	_, err = svc.Assign(ctx, "c1", dto.AssignAssistantRequest{UserID: helperID}, claims(helperID, models.RoleTeacher))
	assertCode(t, err, appErrors.ErrForbidden)

	manage := true
	noStudents := false
	updated, err := svc.UpdatePermissions(ctx, "c1", helperID, models.AssistantPermissionsPatch{CanManageEnrollments: &manage, CanViewStudents: &noStudents}, teacher)
	require.NoError(t, err)
	assert.True(t, updated.CanManageEnrollments)
	assert.False(t, updated.CanViewStudents)
	assert.True(t, updated.CanEditGrades)

	list, err := svc.List(ctx, "c1", teacher)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Remove(ctx, "c1", helperID, teacher))
	err = svc.Remove(ctx, "c1", helperID, teacher)
	assertCode(t, err, appErrors.ErrNotFound)

	_, err = svc.UpdatePermissions(ctx, "c1", helperID, models.AssistantPermissionsPatch{}, teacher)
	assertCode(t, err, appErrors.ErrNotFound)
}
