package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

type availabilityRepository interface {
	FindByPublicID(ctx context.Context, publicID string) (*models.AvailabilityWindow, error)
	ListByTeacherAndDay(ctx context.Context, teacherID int64, dayOfWeek int, excludeID int64) ([]models.AvailabilityWindow, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error)
	Create(ctx context.Context, window *models.AvailabilityWindow) error
	Update(ctx context.Context, window *models.AvailabilityWindow) error
	SoftDelete(ctx context.Context, id int64, modifiedBy string) error
}

type teacherResolver interface {
	ResolveTeacher(ctx context.Context, publicID string) (*models.EntityRef, error)
	TeacherOrganization(ctx context.Context, teacherID int64) (int64, error)
}

// AvailabilityWindowRequest declares one open interval on a weekday. Times
// are minutes from midnight; the interval is half-open so end must be
// strictly after start.
type AvailabilityWindowRequest struct {
	DayOfWeek    int `json:"day_of_week" validate:"required,min=1,max=7"`
	StartMinutes int `json:"start_minutes" validate:"min=0,max=1439"`
	EndMinutes   int `json:"end_minutes" validate:"required,min=1,max=1440"`
}

// AvailabilityService validates and persists teacher availability windows.
// Windows of the same teacher and day must never overlap, and their total
// duration stays within the configured daily minutes budget.
type AvailabilityService struct {
	windows         availabilityRepository
	resolver        teacherResolver
	dailyBudget     int
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	serializeWrites bool
	teacherLocks    keyedMutex
}

// NewAvailabilityService creates a service instance.
func NewAvailabilityService(
	windows availabilityRepository,
	resolver teacherResolver,
	dailyBudget int,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	serializeWrites bool,
) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dailyBudget <= 0 {
		dailyBudget = 480
	}
	return &AvailabilityService{
		windows:         windows,
		resolver:        resolver,
		dailyBudget:     dailyBudget,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		serializeWrites: serializeWrites,
	}
}

func (s *AvailabilityService) lockTeacher(teacherID int64) func() {
	if !s.serializeWrites {
		return func() {}
	}
	return s.teacherLocks.lock(fmt.Sprintf("availability:%d", teacherID))
}

// ListByTeacher returns a teacher's active windows ordered by day and start.
func (s *AvailabilityService) ListByTeacher(ctx context.Context, actor models.Actor, teacherRef string) ([]models.AvailabilityWindow, error) {
	teacher, err := s.resolver.ResolveTeacher(ctx, teacherRef)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOrganization(teacher.OrganizationID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher belongs to another organization")
	}
	windows, err := s.windows.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return windows, nil
}

// Create validates and persists a new window for the teacher.
func (s *AvailabilityService) Create(ctx context.Context, actor models.Actor, teacherRef string, req AvailabilityWindowRequest) (*models.AvailabilityWindow, error) {
	teacher, err := s.resolver.ResolveTeacher(ctx, teacherRef)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOrganization(teacher.OrganizationID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher belongs to another organization")
	}

	unlock := s.lockTeacher(teacher.ID)
	defer unlock()

	if err := s.validateWindow(ctx, teacher.ID, req, 0); err != nil {
		return nil, err
	}

	window := &models.AvailabilityWindow{
		TeacherID:    teacher.ID,
		DayOfWeek:    req.DayOfWeek,
		StartMinutes: req.StartMinutes,
		EndMinutes:   req.EndMinutes,
		CreatedBy:    actor.UserID,
		ModifiedBy:   actor.UserID,
	}
	if err := s.windows.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}
	s.logger.Info("availability window created",
		zap.String("window_id", window.PublicID),
		zap.String("teacher_id", teacher.PublicID),
		zap.Int("day_of_week", window.DayOfWeek))
	return window, nil
}

// Update re-validates the window against its siblings, excluding itself, and
// persists the new interval.
func (s *AvailabilityService) Update(ctx context.Context, actor models.Actor, publicID string, req AvailabilityWindowRequest) (*models.AvailabilityWindow, error) {
	window, err := s.loadWindow(ctx, actor, publicID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTeacher(window.TeacherID)
	defer unlock()

	if err := s.validateWindow(ctx, window.TeacherID, req, window.ID); err != nil {
		return nil, err
	}

	window.DayOfWeek = req.DayOfWeek
	window.StartMinutes = req.StartMinutes
	window.EndMinutes = req.EndMinutes
	window.ModifiedBy = actor.UserID
	if err := s.windows.Update(ctx, window); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability window")
	}
	return window, nil
}

// Delete soft-deletes the window.
func (s *AvailabilityService) Delete(ctx context.Context, actor models.Actor, publicID string) error {
	window, err := s.loadWindow(ctx, actor, publicID)
	if err != nil {
		return err
	}
	if err := s.windows.SoftDelete(ctx, window.ID, actor.UserID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability window")
	}
	return nil
}

// validateWindow runs the overlap and budget checks against the teacher's
// sibling windows of the same day. excludeID skips the window under update.
func (s *AvailabilityService) validateWindow(ctx context.Context, teacherID int64, req AvailabilityWindowRequest, excludeID int64) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if req.EndMinutes <= req.StartMinutes {
		return s.rejectWindow(appErrors.Clone(appErrors.ErrValidation, "end must be after start"))
	}

	siblings, err := s.windows.ListByTeacherAndDay(ctx, teacherID, req.DayOfWeek, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing windows")
	}

	// Half-open intervals: [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
	// Touching endpoints are allowed so back-to-back windows stay legal.
	for i := range siblings {
		sibling := &siblings[i]
		if req.StartMinutes < sibling.EndMinutes && sibling.StartMinutes < req.EndMinutes {
			return s.rejectWindow(appErrors.Clonef(appErrors.ErrOverlapConflict,
				"window overlaps existing window %s (%s)", sibling.PublicID, sibling.Label()))
		}
	}

	used := 0
	for i := range siblings {
		used += siblings[i].Duration()
	}
	requested := req.EndMinutes - req.StartMinutes
	if used+requested > s.dailyBudget {
		remaining := s.dailyBudget - used
		if remaining < 0 {
			remaining = 0
		}
		return s.rejectWindow(appErrors.Clonef(appErrors.ErrQuotaExceeded,
			"daily budget is %d minutes, %d minutes remaining", s.dailyBudget, remaining))
	}
	return nil
}

func (s *AvailabilityService) rejectWindow(err error) error {
	if appErr := appErrors.FromError(err); appErr != nil {
		s.metrics.RecordValidationRejection(appErr.Code)
	}
	return err
}

func (s *AvailabilityService) loadWindow(ctx context.Context, actor models.Actor, publicID string) (*models.AvailabilityWindow, error) {
	window, err := s.windows.FindByPublicID(ctx, publicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	// organization scoping goes through the owning teacher
	if !actor.IsAdmin() {
		orgID, err := s.resolver.TeacherOrganization(ctx, window.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load window owner")
		}
		if !actor.CanAccessOrganization(orgID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "window belongs to another organization")
		}
	}
	return window, nil
}
