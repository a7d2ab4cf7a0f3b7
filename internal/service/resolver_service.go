package service

import (
	"context"
	"database/sql"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

type lookupRepository interface {
	Organization(ctx context.Context, publicID string) (*models.EntityRef, error)
	Teacher(ctx context.Context, publicID string) (*models.EntityRef, error)
	Subject(ctx context.Context, publicID string) (*models.EntityRef, error)
	Room(ctx context.Context, publicID string) (*models.EntityRef, error)
	Class(ctx context.Context, publicID string) (*models.EntityRef, error)
	ClassBand(ctx context.Context, publicID string) (*models.EntityRef, error)
	Rule(ctx context.Context, publicID string) (*models.EntityRef, error)
	PlanSetting(ctx context.Context, publicID string) (*models.EntityRef, error)
	TeacherOrganization(ctx context.Context, teacherID int64) (int64, error)
}

// ResolverService translates external opaque identifiers into internal keys.
// Resolution is always scoped to non-deleted rows; an unresolved reference
// surfaces as NOT_FOUND naming the entity kind.
type ResolverService struct {
	lookups lookupRepository
}

// NewResolverService creates a resolver instance.
func NewResolverService(lookups lookupRepository) *ResolverService {
	return &ResolverService{lookups: lookups}
}

func resolved(ref *models.EntityRef, err error, kind string) (*models.EntityRef, error) {
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, kind+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve "+kind)
	}
	return ref, nil
}

// ResolveOrganization resolves an organization reference.
func (s *ResolverService) ResolveOrganization(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.Organization(ctx, publicID)
	return resolved(ref, err, "organization")
}

// ResolveTeacher resolves a teacher reference.
func (s *ResolverService) ResolveTeacher(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.Teacher(ctx, publicID)
	return resolved(ref, err, "teacher")
}

// ResolveSubject resolves a subject reference.
func (s *ResolverService) ResolveSubject(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.Subject(ctx, publicID)
	return resolved(ref, err, "subject")
}

// ResolveRoom resolves a room reference.
func (s *ResolverService) ResolveRoom(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.Room(ctx, publicID)
	return resolved(ref, err, "room")
}

// ResolveClass resolves a class reference.
func (s *ResolverService) ResolveClass(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.Class(ctx, publicID)
	return resolved(ref, err, "class")
}

// ResolveClassBand resolves a class-band reference.
func (s *ResolverService) ResolveClassBand(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.ClassBand(ctx, publicID)
	return resolved(ref, err, "class band")
}

// ResolveRule resolves a scheduling-rule reference.
func (s *ResolverService) ResolveRule(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.Rule(ctx, publicID)
	return resolved(ref, err, "rule")
}

// ResolvePlanSetting resolves a plan-setting reference.
func (s *ResolverService) ResolvePlanSetting(ctx context.Context, publicID string) (*models.EntityRef, error) {
	ref, err := s.lookups.PlanSetting(ctx, publicID)
	return resolved(ref, err, "plan setting")
}

// TeacherOrganization returns the owning organization of a teacher by
// internal key.
func (s *ResolverService) TeacherOrganization(ctx context.Context, teacherID int64) (int64, error) {
	orgID, err := s.lookups.TeacherOrganization(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher organization")
	}
	return orgID, nil
}
