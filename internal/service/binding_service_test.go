package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

type directoryStub struct {
	entities map[string]*models.EntityRef
}

func newDirectoryStub(refs ...*models.EntityRef) *directoryStub {
	s := &directoryStub{entities: make(map[string]*models.EntityRef)}
	for _, ref := range refs {
		s.entities[ref.PublicID] = ref
	}
	return s
}

func (s *directoryStub) resolve(publicID string) (*models.EntityRef, error) {
	if ref, ok := s.entities[publicID]; ok {
		cp := *ref
		return &cp, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, publicID+" not found")
}

func (s *directoryStub) ResolveOrganization(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

func (s *directoryStub) ResolveTeacher(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

func (s *directoryStub) ResolveSubject(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

func (s *directoryStub) ResolveRoom(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

func (s *directoryStub) ResolveClass(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

func (s *directoryStub) ResolveClassBand(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

func (s *directoryStub) ResolveRule(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

func (s *directoryStub) ResolvePlanSetting(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return s.resolve(publicID)
}

type bindingRepoStub struct {
	nextID     int64
	details    map[string]*models.BindingDetail
	duplicates int
	sumPeriods int

	lastDuplicateExclude int64
	lastSumExclude       int64
	created              []*models.Binding
	updated              []*models.Binding
	softDeleted          []int64
	attached             [][2]int64
	detached             [][2]int64
	fieldMatches         []models.Binding
	fieldUpdates         []int64
	ruleRefs             map[int64][]string
}

func newBindingRepoStub() *bindingRepoStub {
	return &bindingRepoStub{details: make(map[string]*models.BindingDetail), ruleRefs: make(map[int64][]string)}
}

func (s *bindingRepoStub) addDetail(detail *models.BindingDetail) {
	s.details[detail.PublicID] = detail
}

func (s *bindingRepoStub) FindByPublicID(ctx context.Context, publicID string) (*models.BindingDetail, error) {
	if detail, ok := s.details[publicID]; ok {
		cp := *detail
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bindingRepoStub) ListByTeacher(ctx context.Context, teacherID int64) ([]models.BindingDetail, error) {
	var out []models.BindingDetail
	for _, detail := range s.details {
		if detail.TeacherID == teacherID {
			out = append(out, *detail)
		}
	}
	return out, nil
}

func (s *bindingRepoStub) CountDuplicates(ctx context.Context, teacherID, subjectID int64, target models.BindingTarget, excludeID int64) (int, error) {
	s.lastDuplicateExclude = excludeID
	return s.duplicates, nil
}

func (s *bindingRepoStub) SumPeriods(ctx context.Context, teacherID, planSettingID, excludeID int64) (int, error) {
	s.lastSumExclude = excludeID
	return s.sumPeriods, nil
}

func (s *bindingRepoStub) Create(ctx context.Context, binding *models.Binding) error {
	s.nextID++
	binding.ID = s.nextID
	binding.PublicID = fmt.Sprintf("binding-%d", s.nextID)
	s.created = append(s.created, binding)
	cp := *binding
	s.addDetail(&models.BindingDetail{Binding: cp, TeacherName: "stub teacher", SubjectName: "stub subject"})
	return nil
}

func (s *bindingRepoStub) Update(ctx context.Context, binding *models.Binding) error {
	s.updated = append(s.updated, binding)
	cp := *binding
	s.addDetail(&models.BindingDetail{Binding: cp, TeacherName: "stub teacher", SubjectName: "stub subject"})
	return nil
}

func (s *bindingRepoStub) SoftDelete(ctx context.Context, id int64, modifiedBy string) error {
	s.softDeleted = append(s.softDeleted, id)
	return nil
}

func (s *bindingRepoStub) ListByFieldRef(ctx context.Context, field models.ReplaceField, refID, organizationID int64) ([]models.Binding, error) {
	return s.fieldMatches, nil
}

func (s *bindingRepoStub) UpdateFieldRef(ctx context.Context, bindingID int64, field models.ReplaceField, refID int64, modifiedBy string) error {
	s.fieldUpdates = append(s.fieldUpdates, bindingID)
	return nil
}

func (s *bindingRepoStub) AttachRule(ctx context.Context, bindingID, ruleID int64) error {
	s.attached = append(s.attached, [2]int64{bindingID, ruleID})
	return nil
}

func (s *bindingRepoStub) DetachRule(ctx context.Context, bindingID, ruleID int64) error {
	s.detached = append(s.detached, [2]int64{bindingID, ruleID})
	return nil
}

func (s *bindingRepoStub) ListRuleRefs(ctx context.Context, bindingID int64) ([]string, error) {
	return s.ruleRefs[bindingID], nil
}

type capacityStub struct {
	capacity int
}

func (s capacityStub) WeeklyCapacity(ctx context.Context, teacherID, planSettingID int64) int {
	return s.capacity
}

func defaultDirectory() *directoryStub {
	return newDirectoryStub(
		&models.EntityRef{ID: 1, PublicID: "org-1", Name: "North Campus"},
		&models.EntityRef{ID: 10, PublicID: "teacher-1", Name: "A. Naidoo", OrganizationID: 1},
		&models.EntityRef{ID: 11, PublicID: "teacher-2", Name: "B. Osei", OrganizationID: 1},
		&models.EntityRef{ID: 20, PublicID: "subject-1", Name: "Mathematics", OrganizationID: 1},
		&models.EntityRef{ID: 21, PublicID: "subject-2", Name: "Physics", OrganizationID: 1},
		&models.EntityRef{ID: 30, PublicID: "room-1", Name: "R101", OrganizationID: 1},
		&models.EntityRef{ID: 31, PublicID: "room-2", Name: "R102", OrganizationID: 1},
		&models.EntityRef{ID: 40, PublicID: "class-1", Name: "Grade 9A", OrganizationID: 1},
		&models.EntityRef{ID: 41, PublicID: "band-1", Name: "Grade 9 Band", OrganizationID: 1},
		&models.EntityRef{ID: 50, PublicID: "rule-1", Name: "Morning only", OrganizationID: 1},
		&models.EntityRef{ID: 51, PublicID: "rule-other-org", Name: "Other org rule", OrganizationID: 2},
		&models.EntityRef{ID: 60, PublicID: "plan-1", Name: "2026 Term 1", OrganizationID: 1},
	)
}

func newTestBindingService(repo *bindingRepoStub, capacity int) *BindingService {
	return NewBindingService(repo, defaultDirectory(), capacityStub{capacity: capacity}, nil, validator.New(), zap.NewNop(), true)
}

func orgAdmin() models.Actor {
	return models.Actor{UserID: "user-1", Role: models.RoleOrgAdmin, OrganizationID: 1}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validCreateRequest() CreateBindingRequest {
	return CreateBindingRequest{
		OrganizationRef: "org-1",
		TeacherRef:      "teacher-1",
		SubjectRef:      "subject-1",
		RoomRef:         "room-1",
		PlanSettingRef:  "plan-1",
		ClassRef:        strPtr("class-1"),
		PeriodsPerWeek:  4,
		Status:          1,
	}
}

func TestBindingServiceCreate(t *testing.T) {
	repo := newBindingRepoStub()
	service := newTestBindingService(repo, 35)

	req := validCreateRequest()
	req.RuleRefs = []string{"rule-1", "rule-1"}

	detail, err := service.Create(context.Background(), orgAdmin(), req)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	created := repo.created[0]
	assert.Equal(t, int64(10), created.TeacherID)
	require.NotNil(t, created.ClassID)
	assert.Equal(t, int64(40), *created.ClassID)
	assert.Nil(t, created.ClassBandID)
	assert.Equal(t, "user-1", created.CreatedBy)

	// duplicate rule refs collapse to one attach
	assert.Equal(t, [][2]int64{{created.ID, 50}}, repo.attached)
	assert.Equal(t, created.PublicID, detail.PublicID)
}

func TestBindingServiceCreateTargetExclusivity(t *testing.T) {
	service := newTestBindingService(newBindingRepoStub(), 35)

	both := validCreateRequest()
	both.ClassBandRef = strPtr("band-1")
	_, err := service.Create(context.Background(), orgAdmin(), both)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	neither := validCreateRequest()
	neither.ClassRef = nil
	_, err = service.Create(context.Background(), orgAdmin(), neither)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBindingServiceCreateDuplicate(t *testing.T) {
	repo := newBindingRepoStub()
	repo.duplicates = 1
	service := newTestBindingService(repo, 35)

	_, err := service.Create(context.Background(), orgAdmin(), validCreateRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateBinding))
	assert.Contains(t, appErrors.FromError(err).Message, "A. Naidoo already teaches Mathematics to Grade 9A")
	assert.Empty(t, repo.created)
}

func TestBindingServiceCreateWorkloadBoundary(t *testing.T) {
	repo := newBindingRepoStub()
	repo.sumPeriods = 31
	service := newTestBindingService(repo, 35)

	// 31 + 4 == 35 fills the capacity exactly
	req := validCreateRequest()
	_, err := service.Create(context.Background(), orgAdmin(), req)
	require.NoError(t, err)

	// one more period goes over
	repo2 := newBindingRepoStub()
	repo2.sumPeriods = 32
	service2 := newTestBindingService(repo2, 35)
	_, err = service2.Create(context.Background(), orgAdmin(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrWorkloadExceeded))
	assert.Contains(t, appErrors.FromError(err).Message, "weekly capacity is 35 periods, current usage 32, requested 4")
}

func TestBindingServiceCreateCrossOrgRule(t *testing.T) {
	repo := newBindingRepoStub()
	service := newTestBindingService(repo, 35)

	req := validCreateRequest()
	req.RuleRefs = []string{"rule-other-org"}
	_, err := service.Create(context.Background(), orgAdmin(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.created)
}

func TestBindingServiceCreateForbiddenOrganization(t *testing.T) {
	service := newTestBindingService(newBindingRepoStub(), 35)

	outsider := models.Actor{UserID: "user-9", Role: models.RoleOrgAdmin, OrganizationID: 2}
	_, err := service.Create(context.Background(), outsider, validCreateRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func existingBinding(repo *bindingRepoStub) *models.BindingDetail {
	classID := int64(40)
	detail := &models.BindingDetail{
		Binding: models.Binding{
			ID:             1,
			PublicID:       "binding-1",
			OrganizationID: 1,
			TeacherID:      10,
			SubjectID:      20,
			RoomID:         30,
			PlanSettingID:  60,
			ClassID:        &classID,
			PeriodsPerWeek: 4,
			Status:         1,
		},
		TeacherName: "A. Naidoo",
		SubjectName: "Mathematics",
	}
	repo.addDetail(detail)
	return detail
}

func TestBindingServiceUpdatePartial(t *testing.T) {
	repo := newBindingRepoStub()
	existingBinding(repo)
	service := newTestBindingService(repo, 35)

	detail, err := service.Update(context.Background(), orgAdmin(), "binding-1", UpdateBindingRequest{
		PeriodsPerWeek: intPtr(6),
	})
	require.NoError(t, err)
	require.Len(t, repo.updated, 1)

	merged := repo.updated[0]
	assert.Equal(t, 6, merged.PeriodsPerWeek)
	// omitted fields keep the stored values
	assert.Equal(t, int64(10), merged.TeacherID)
	assert.Equal(t, int64(20), merged.SubjectID)
	require.NotNil(t, merged.ClassID)
	assert.Equal(t, int64(40), *merged.ClassID)
	assert.Equal(t, 6, detail.PeriodsPerWeek)

	// uniqueness and workload checks must ignore the row under update
	assert.Equal(t, int64(1), repo.lastDuplicateExclude)
	assert.Equal(t, int64(1), repo.lastSumExclude)
}

func TestBindingServiceUpdateRetarget(t *testing.T) {
	repo := newBindingRepoStub()
	existingBinding(repo)
	service := newTestBindingService(repo, 35)

	_, err := service.Update(context.Background(), orgAdmin(), "binding-1", UpdateBindingRequest{
		ClassBandRef: strPtr("band-1"),
	})
	require.NoError(t, err)
	require.Len(t, repo.updated, 1)

	merged := repo.updated[0]
	assert.Nil(t, merged.ClassID)
	require.NotNil(t, merged.ClassBandID)
	assert.Equal(t, int64(41), *merged.ClassBandID)
}

func TestBindingServiceUpdateBothTargetsRejected(t *testing.T) {
	repo := newBindingRepoStub()
	existingBinding(repo)
	service := newTestBindingService(repo, 35)

	_, err := service.Update(context.Background(), orgAdmin(), "binding-1", UpdateBindingRequest{
		ClassRef:     strPtr("class-1"),
		ClassBandRef: strPtr("band-1"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBindingServiceUpdateForbidden(t *testing.T) {
	repo := newBindingRepoStub()
	existingBinding(repo)
	service := newTestBindingService(repo, 35)

	outsider := models.Actor{UserID: "user-9", Role: models.RoleOrgAdmin, OrganizationID: 2}
	_, err := service.Update(context.Background(), outsider, "binding-1", UpdateBindingRequest{PeriodsPerWeek: intPtr(2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestBindingServiceGetNotFound(t *testing.T) {
	service := newTestBindingService(newBindingRepoStub(), 35)

	_, err := service.Get(context.Background(), orgAdmin(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestBindingServiceDelete(t *testing.T) {
	repo := newBindingRepoStub()
	existingBinding(repo)
	service := newTestBindingService(repo, 35)

	err := service.Delete(context.Background(), orgAdmin(), "binding-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, repo.softDeleted)
}

func TestBindingServiceAttachDetachRule(t *testing.T) {
	repo := newBindingRepoStub()
	existingBinding(repo)
	service := newTestBindingService(repo, 35)

	require.NoError(t, service.AttachRule(context.Background(), orgAdmin(), "binding-1", "rule-1"))
	assert.Equal(t, [][2]int64{{1, 50}}, repo.attached)

	require.NoError(t, service.DetachRule(context.Background(), orgAdmin(), "binding-1", "rule-1"))
	assert.Equal(t, [][2]int64{{1, 50}}, repo.detached)

	err := service.AttachRule(context.Background(), orgAdmin(), "binding-1", "rule-other-org")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
