package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

func replaceMatches(n int) []models.Binding {
	classID := int64(40)
	matches := make([]models.Binding, 0, n)
	for i := 0; i < n; i++ {
		matches = append(matches, models.Binding{
			ID:             int64(i + 1),
			PublicID:       "binding-" + string(rune('a'+i)),
			OrganizationID: 1,
			TeacherID:      10,
			SubjectID:      20,
			RoomID:         30,
			PlanSettingID:  60,
			ClassID:        &classID,
			PeriodsPerWeek: 2,
			Status:         1,
		})
	}
	return matches
}

func TestReplaceFieldAll(t *testing.T) {
	repo := newBindingRepoStub()
	repo.fieldMatches = replaceMatches(3)
	service := newTestBindingService(repo, 35)

	result, err := service.ReplaceField(context.Background(), orgAdmin(), ReplaceBindingFieldRequest{
		FieldType:  "teacher",
		SearchRef:  "teacher-1",
		ReplaceRef: "teacher-2",
		Mode:       "all",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 3, result.Replaced)
	assert.Len(t, result.Outcomes, 3)
	assert.Equal(t, []int64{1, 2, 3}, repo.fieldUpdates)
}

func TestReplaceFieldSingle(t *testing.T) {
	repo := newBindingRepoStub()
	repo.fieldMatches = replaceMatches(3)
	service := newTestBindingService(repo, 35)

	result, err := service.ReplaceField(context.Background(), orgAdmin(), ReplaceBindingFieldRequest{
		FieldType:  "teacher",
		SearchRef:  "teacher-1",
		ReplaceRef: "teacher-2",
		Mode:       "single",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 1, result.Replaced)
	assert.Equal(t, []int64{1}, repo.fieldUpdates)
}

func TestReplaceFieldSelected(t *testing.T) {
	repo := newBindingRepoStub()
	repo.fieldMatches = replaceMatches(3)
	service := newTestBindingService(repo, 35)

	result, err := service.ReplaceField(context.Background(), orgAdmin(), ReplaceBindingFieldRequest{
		FieldType:   "subject",
		SearchRef:   "subject-1",
		ReplaceRef:  "subject-2",
		Mode:        "selected",
		SelectedIDs: []string{"binding-a", "binding-c"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 2, result.Replaced)
	assert.Equal(t, []int64{1, 3}, repo.fieldUpdates)
}

func TestReplaceFieldNoMatches(t *testing.T) {
	repo := newBindingRepoStub()
	service := newTestBindingService(repo, 35)

	result, err := service.ReplaceField(context.Background(), orgAdmin(), ReplaceBindingFieldRequest{
		FieldType:  "room",
		SearchRef:  "room-1",
		ReplaceRef: "room-2",
		Mode:       "all",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	assert.Equal(t, 0, result.Replaced)
	assert.Contains(t, result.Message, "no bindings reference room")
	assert.Empty(t, repo.fieldUpdates)
}

func TestReplaceFieldValidation(t *testing.T) {
	service := newTestBindingService(newBindingRepoStub(), 35)
	actor := orgAdmin()

	_, err := service.ReplaceField(context.Background(), actor, ReplaceBindingFieldRequest{
		FieldType: "homeroom", SearchRef: "x", ReplaceRef: "y", Mode: "all",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.ReplaceField(context.Background(), actor, ReplaceBindingFieldRequest{
		FieldType: "teacher", SearchRef: "teacher-1", ReplaceRef: "teacher-2", Mode: "bulk",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.ReplaceField(context.Background(), actor, ReplaceBindingFieldRequest{
		FieldType: "teacher", SearchRef: "teacher-1", ReplaceRef: "teacher-2", Mode: "selected",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.ReplaceField(context.Background(), actor, ReplaceBindingFieldRequest{
		FieldType: "teacher", SearchRef: "teacher-1", ReplaceRef: "teacher-1", Mode: "all",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReplaceFieldBestEffort(t *testing.T) {
	repo := newBindingRepoStub()
	repo.fieldMatches = replaceMatches(2)
	repo.duplicates = 1 // every teacher swap now collides
	service := newTestBindingService(repo, 35)

	result, err := service.ReplaceField(context.Background(), orgAdmin(), ReplaceBindingFieldRequest{
		FieldType:  "teacher",
		SearchRef:  "teacher-1",
		ReplaceRef: "teacher-2",
		Mode:       "all",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 0, result.Replaced)
	require.Len(t, result.Outcomes, 2)
	for _, outcome := range result.Outcomes {
		assert.False(t, outcome.Replaced)
		assert.NotEmpty(t, outcome.Error)
	}
	assert.Empty(t, repo.fieldUpdates)
}

func TestReplaceFieldRoomSkipsConstraintChecks(t *testing.T) {
	repo := newBindingRepoStub()
	repo.fieldMatches = replaceMatches(2)
	repo.duplicates = 1 // irrelevant for room swaps
	service := newTestBindingService(repo, 35)

	result, err := service.ReplaceField(context.Background(), orgAdmin(), ReplaceBindingFieldRequest{
		FieldType:  "room",
		SearchRef:  "room-1",
		ReplaceRef: "room-2",
		Mode:       "all",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Replaced)
}
