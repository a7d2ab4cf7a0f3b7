package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

type availabilityRepoStub struct {
	nextID  int64
	windows map[string]*models.AvailabilityWindow

	lastExcludeID int64
	created       []*models.AvailabilityWindow
	updated       []*models.AvailabilityWindow
	softDeleted   []int64
}

func newAvailabilityRepoStub() *availabilityRepoStub {
	return &availabilityRepoStub{windows: make(map[string]*models.AvailabilityWindow)}
}

func (s *availabilityRepoStub) add(window *models.AvailabilityWindow) {
	s.windows[window.PublicID] = window
}

func (s *availabilityRepoStub) FindByPublicID(ctx context.Context, publicID string) (*models.AvailabilityWindow, error) {
	if window, ok := s.windows[publicID]; ok {
		cp := *window
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *availabilityRepoStub) ListByTeacherAndDay(ctx context.Context, teacherID int64, dayOfWeek int, excludeID int64) ([]models.AvailabilityWindow, error) {
	s.lastExcludeID = excludeID
	var out []models.AvailabilityWindow
	for _, window := range s.windows {
		if window.TeacherID == teacherID && window.DayOfWeek == dayOfWeek && window.ID != excludeID {
			out = append(out, *window)
		}
	}
	return out, nil
}

func (s *availabilityRepoStub) ListByTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, window := range s.windows {
		if window.TeacherID == teacherID {
			out = append(out, *window)
		}
	}
	return out, nil
}

func (s *availabilityRepoStub) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	s.nextID++
	window.ID = s.nextID
	window.PublicID = "window-" + string(rune('0'+s.nextID))
	s.created = append(s.created, window)
	cp := *window
	s.add(&cp)
	return nil
}

func (s *availabilityRepoStub) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	s.updated = append(s.updated, window)
	cp := *window
	s.add(&cp)
	return nil
}

func (s *availabilityRepoStub) SoftDelete(ctx context.Context, id int64, modifiedBy string) error {
	s.softDeleted = append(s.softDeleted, id)
	return nil
}

type teacherResolverStub struct {
	teachers map[string]*models.EntityRef
	orgs     map[int64]int64
}

func (s *teacherResolverStub) ResolveTeacher(ctx context.Context, publicID string) (*models.EntityRef, error) {
	if teacher, ok := s.teachers[publicID]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
}

func (s *teacherResolverStub) TeacherOrganization(ctx context.Context, teacherID int64) (int64, error) {
	return s.orgs[teacherID], nil
}

func newTestAvailabilityService(repo *availabilityRepoStub) *AvailabilityService {
	resolver := &teacherResolverStub{
		teachers: map[string]*models.EntityRef{
			"teacher-1": {ID: 10, PublicID: "teacher-1", Name: "A. Naidoo", OrganizationID: 1},
		},
		orgs: map[int64]int64{10: 1},
	}
	return NewAvailabilityService(repo, resolver, 480, nil, validator.New(), zap.NewNop(), true)
}

func storedWindow(repo *availabilityRepoStub, id int64, day, start, end int) {
	repo.add(&models.AvailabilityWindow{
		ID:           id,
		PublicID:     "window-" + string(rune('0'+id)),
		TeacherID:    10,
		DayOfWeek:    day,
		StartMinutes: start,
		EndMinutes:   end,
	})
}

func TestAvailabilityServiceCreate(t *testing.T) {
	repo := newAvailabilityRepoStub()
	service := newTestAvailabilityService(repo)

	window, err := service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 9 * 60,
		EndMinutes:   10 * 60,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), window.TeacherID)
	assert.Equal(t, "09:00-10:00", window.Label())
	assert.Len(t, repo.created, 1)
}

func TestAvailabilityServiceCreateTouchingWindows(t *testing.T) {
	repo := newAvailabilityRepoStub()
	storedWindow(repo, 1, 1, 9*60, 10*60)
	service := newTestAvailabilityService(repo)

	// [9:00,10:00) and [10:00,11:00) share only the endpoint
	_, err := service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 10 * 60,
		EndMinutes:   11 * 60,
	})
	require.NoError(t, err)
}

func TestAvailabilityServiceCreateOverlap(t *testing.T) {
	repo := newAvailabilityRepoStub()
	storedWindow(repo, 1, 1, 9*60, 10*60)
	service := newTestAvailabilityService(repo)

	_, err := service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 9*60 + 59,
		EndMinutes:   11 * 60,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrOverlapConflict))
	assert.Contains(t, appErrors.FromError(err).Message, "09:00-10:00")
}

func TestAvailabilityServiceCreateOtherDayIgnored(t *testing.T) {
	repo := newAvailabilityRepoStub()
	storedWindow(repo, 1, 2, 9*60, 10*60)
	service := newTestAvailabilityService(repo)

	_, err := service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 9 * 60,
		EndMinutes:   10 * 60,
	})
	require.NoError(t, err)
}

func TestAvailabilityServiceDailyBudget(t *testing.T) {
	repo := newAvailabilityRepoStub()
	storedWindow(repo, 1, 1, 8*60, 10*60)
	storedWindow(repo, 2, 1, 10*60, 12*60)
	storedWindow(repo, 3, 1, 13*60, 15*60)
	service := newTestAvailabilityService(repo)

	// 360 used, a 120-minute window lands exactly on the 480 budget
	_, err := service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 15 * 60,
		EndMinutes:   17 * 60,
	})
	require.NoError(t, err)

	// budget now exhausted, a single extra minute fails
	_, err = service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 17 * 60,
		EndMinutes:   17*60 + 1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrQuotaExceeded))
	assert.Contains(t, appErrors.FromError(err).Message, "0 minutes remaining")
}

func TestAvailabilityServiceInvalidInterval(t *testing.T) {
	service := newTestAvailabilityService(newAvailabilityRepoStub())

	_, err := service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 10 * 60,
		EndMinutes:   10 * 60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.Create(context.Background(), orgAdmin(), "teacher-1", AvailabilityWindowRequest{
		DayOfWeek:    8,
		StartMinutes: 9 * 60,
		EndMinutes:   10 * 60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceUpdateExcludesSelf(t *testing.T) {
	repo := newAvailabilityRepoStub()
	storedWindow(repo, 1, 1, 9*60, 10*60)
	service := newTestAvailabilityService(repo)

	// growing the same window cannot collide with itself
	window, err := service.Update(context.Background(), orgAdmin(), "window-1", AvailabilityWindowRequest{
		DayOfWeek:    1,
		StartMinutes: 9 * 60,
		EndMinutes:   11 * 60,
	})
	require.NoError(t, err)
	assert.Equal(t, 11*60, window.EndMinutes)
	assert.Equal(t, int64(1), repo.lastExcludeID)
}

func TestAvailabilityServiceDelete(t *testing.T) {
	repo := newAvailabilityRepoStub()
	storedWindow(repo, 1, 1, 9*60, 10*60)
	service := newTestAvailabilityService(repo)

	require.NoError(t, service.Delete(context.Background(), orgAdmin(), "window-1"))
	assert.Equal(t, []int64{1}, repo.softDeleted)
}

func TestAvailabilityServiceCrossOrgForbidden(t *testing.T) {
	repo := newAvailabilityRepoStub()
	storedWindow(repo, 1, 1, 9*60, 10*60)
	service := newTestAvailabilityService(repo)

	outsider := models.Actor{UserID: "user-9", Role: models.RoleOrgAdmin, OrganizationID: 2}
	err := service.Delete(context.Background(), outsider, "window-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
