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

type bindingRepository interface {
	bindingConstraintRepo
	FindByPublicID(ctx context.Context, publicID string) (*models.BindingDetail, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.BindingDetail, error)
	Create(ctx context.Context, binding *models.Binding) error
	Update(ctx context.Context, binding *models.Binding) error
	SoftDelete(ctx context.Context, id int64, modifiedBy string) error
	ListByFieldRef(ctx context.Context, field models.ReplaceField, refID, organizationID int64) ([]models.Binding, error)
	UpdateFieldRef(ctx context.Context, bindingID int64, field models.ReplaceField, refID int64, modifiedBy string) error
	AttachRule(ctx context.Context, bindingID, ruleID int64) error
	DetachRule(ctx context.Context, bindingID, ruleID int64) error
	ListRuleRefs(ctx context.Context, bindingID int64) ([]string, error)
}

type identityResolver interface {
	ResolveOrganization(ctx context.Context, publicID string) (*models.EntityRef, error)
	ResolveTeacher(ctx context.Context, publicID string) (*models.EntityRef, error)
	ResolveSubject(ctx context.Context, publicID string) (*models.EntityRef, error)
	ResolveRoom(ctx context.Context, publicID string) (*models.EntityRef, error)
	ResolveClass(ctx context.Context, publicID string) (*models.EntityRef, error)
	ResolveClassBand(ctx context.Context, publicID string) (*models.EntityRef, error)
	ResolveRule(ctx context.Context, publicID string) (*models.EntityRef, error)
	ResolvePlanSetting(ctx context.Context, publicID string) (*models.EntityRef, error)
}

// CreateBindingRequest describes a new binding. References are external
// opaque identifiers; exactly one of ClassRef/ClassBandRef must be set.
type CreateBindingRequest struct {
	OrganizationRef string   `json:"organization_id" validate:"required"`
	TeacherRef      string   `json:"teacher_id" validate:"required"`
	SubjectRef      string   `json:"subject_id" validate:"required"`
	RoomRef         string   `json:"room_id" validate:"required"`
	PlanSettingRef  string   `json:"plan_setting_id" validate:"required"`
	ClassRef        *string  `json:"class_id,omitempty"`
	ClassBandRef    *string  `json:"class_band_id,omitempty"`
	PeriodsPerWeek  int      `json:"periods_per_week" validate:"required,gt=0"`
	IsFixed         bool     `json:"is_fixed"`
	Priority        int      `json:"priority"`
	Notes           string   `json:"notes"`
	Status          int      `json:"status" validate:"required,gt=0"`
	RuleRefs        []string `json:"rule_ids,omitempty"`
}

// UpdateBindingRequest is a partial update: a nil field keeps the prior
// value. Setting ClassRef retargets to a class and clears any class band;
// ClassBandRef is symmetric. Sending both is rejected.
type UpdateBindingRequest struct {
	TeacherRef     *string `json:"teacher_id,omitempty"`
	SubjectRef     *string `json:"subject_id,omitempty"`
	RoomRef        *string `json:"room_id,omitempty"`
	PlanSettingRef *string `json:"plan_setting_id,omitempty"`
	ClassRef       *string `json:"class_id,omitempty"`
	ClassBandRef   *string `json:"class_band_id,omitempty"`
	PeriodsPerWeek *int    `json:"periods_per_week,omitempty" validate:"omitempty,gt=0"`
	IsFixed        *bool   `json:"is_fixed,omitempty"`
	Priority       *int    `json:"priority,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Status         *int    `json:"status,omitempty" validate:"omitempty,gt=0"`
}

// BindingService is the mutation engine for bindings: it resolves external
// references, gates every write through the constraint validator and
// persists only fully validated state.
type BindingService struct {
	bindings        bindingRepository
	resolver        identityResolver
	constraints     *bindingValidator
	validator       *validator.Validate
	logger          *zap.Logger
	serializeWrites bool
	teacherLocks    keyedMutex
}

// NewBindingService creates a service instance.
func NewBindingService(
	bindings bindingRepository,
	resolver identityResolver,
	capacity weeklyCapacityOracle,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	serializeWrites bool,
) *BindingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BindingService{
		bindings:        bindings,
		resolver:        resolver,
		constraints:     newBindingValidator(bindings, capacity, metrics),
		validator:       validate,
		logger:          logger,
		serializeWrites: serializeWrites,
	}
}

// lockTeacher serializes validate-then-write per teacher when configured.
// Returns a no-op unlock otherwise.
func (s *BindingService) lockTeacher(teacherID int64) func() {
	if !s.serializeWrites {
		return func() {}
	}
	return s.teacherLocks.lock(fmt.Sprintf("teacher:%d", teacherID))
}

// Get returns one binding with display fields and attached rules.
func (s *BindingService) Get(ctx context.Context, actor models.Actor, publicID string) (*models.BindingDetail, error) {
	detail, err := s.loadBinding(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOrganization(detail.OrganizationID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "binding belongs to another organization")
	}
	return s.hydrateRules(ctx, detail)
}

// ListByTeacher returns a teacher's active bindings.
func (s *BindingService) ListByTeacher(ctx context.Context, actor models.Actor, teacherRef string) ([]models.BindingDetail, error) {
	teacher, err := s.resolver.ResolveTeacher(ctx, teacherRef)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOrganization(teacher.OrganizationID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher belongs to another organization")
	}
	details, err := s.bindings.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bindings")
	}
	for i := range details {
		refs, err := s.bindings.ListRuleRefs(ctx, details[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load binding rules")
		}
		details[i].RuleRefs = refs
	}
	return details, nil
}

// Create validates and persists a new binding, returning the hydrated detail.
func (s *BindingService) Create(ctx context.Context, actor models.Actor, req CreateBindingRequest) (*models.BindingDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid binding payload")
	}
	if (req.ClassRef == nil) == (req.ClassBandRef == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of class or class band must be set")
	}

	org, err := s.resolver.ResolveOrganization(ctx, req.OrganizationRef)
	if err != nil {
		return nil, err
	}
	teacher, err := s.resolver.ResolveTeacher(ctx, req.TeacherRef)
	if err != nil {
		return nil, err
	}
	subject, err := s.resolver.ResolveSubject(ctx, req.SubjectRef)
	if err != nil {
		return nil, err
	}
	room, err := s.resolver.ResolveRoom(ctx, req.RoomRef)
	if err != nil {
		return nil, err
	}
	plan, err := s.resolver.ResolvePlanSetting(ctx, req.PlanSettingRef)
	if err != nil {
		return nil, err
	}

	var target models.BindingTarget
	var targetName string
	if req.ClassRef != nil {
		class, err := s.resolver.ResolveClass(ctx, *req.ClassRef)
		if err != nil {
			return nil, err
		}
		target = models.ClassTarget(class.ID)
		targetName = class.Name
	} else {
		band, err := s.resolver.ResolveClassBand(ctx, *req.ClassBandRef)
		if err != nil {
			return nil, err
		}
		target = models.ClassBandTarget(band.ID)
		targetName = band.Name
	}

	rules, err := s.resolveRules(ctx, req.RuleRefs)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTeacher(teacher.ID)
	defer unlock()

	prospective := prospectiveBinding{
		organizationID: org.ID,
		teacherID:      teacher.ID,
		subjectID:      subject.ID,
		roomID:         room.ID,
		planSettingID:  plan.ID,
		target:         target,
		periodsPerWeek: req.PeriodsPerWeek,
		status:         req.Status,
		rules:          rules,
		teacherName:    teacher.Name,
		subjectName:    subject.Name,
		targetName:     targetName,
	}
	if err := s.constraints.validate(ctx, actor, prospective); err != nil {
		return nil, err
	}

	binding := &models.Binding{
		OrganizationID: org.ID,
		TeacherID:      teacher.ID,
		SubjectID:      subject.ID,
		RoomID:         room.ID,
		PlanSettingID:  plan.ID,
		PeriodsPerWeek: req.PeriodsPerWeek,
		IsFixed:        req.IsFixed,
		Priority:       req.Priority,
		Notes:          req.Notes,
		Status:         req.Status,
		CreatedBy:      actor.UserID,
		ModifiedBy:     actor.UserID,
	}
	binding.SetTarget(target)

	if err := s.bindings.Create(ctx, binding); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create binding")
	}
	for _, rule := range rules {
		if err := s.bindings.AttachRule(ctx, binding.ID, rule.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach binding rule")
		}
	}

	s.logger.Info("binding created",
		zap.String("binding_id", binding.PublicID),
		zap.String("teacher_id", teacher.PublicID),
		zap.Int("periods_per_week", binding.PeriodsPerWeek))

	return s.Get(ctx, actor, binding.PublicID)
}

// Update merges the request into the existing binding (nil means keep),
// re-validates the merged prospective state and persists it.
func (s *BindingService) Update(ctx context.Context, actor models.Actor, publicID string, req UpdateBindingRequest) (*models.BindingDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid binding payload")
	}
	if req.ClassRef != nil && req.ClassBandRef != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class and class band are mutually exclusive")
	}

	existing, err := s.loadBinding(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOrganization(existing.OrganizationID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "binding belongs to another organization")
	}

	merged := existing.Binding
	prospective := prospectiveBinding{
		excludeID:      existing.ID,
		organizationID: existing.OrganizationID,
		teacherID:      existing.TeacherID,
		subjectID:      existing.SubjectID,
		roomID:         existing.RoomID,
		planSettingID:  existing.PlanSettingID,
		target:         existing.Target(),
		periodsPerWeek: existing.PeriodsPerWeek,
		status:         existing.Status,
		teacherName:    existing.TeacherName,
		subjectName:    existing.SubjectName,
		targetName:     existingTargetName(existing),
	}

	if req.TeacherRef != nil {
		teacher, err := s.resolver.ResolveTeacher(ctx, *req.TeacherRef)
		if err != nil {
			return nil, err
		}
		merged.TeacherID = teacher.ID
		prospective.teacherID = teacher.ID
		prospective.teacherName = teacher.Name
	}
	if req.SubjectRef != nil {
		subject, err := s.resolver.ResolveSubject(ctx, *req.SubjectRef)
		if err != nil {
			return nil, err
		}
		merged.SubjectID = subject.ID
		prospective.subjectID = subject.ID
		prospective.subjectName = subject.Name
	}
	if req.RoomRef != nil {
		room, err := s.resolver.ResolveRoom(ctx, *req.RoomRef)
		if err != nil {
			return nil, err
		}
		merged.RoomID = room.ID
		prospective.roomID = room.ID
	}
	if req.PlanSettingRef != nil {
		plan, err := s.resolver.ResolvePlanSetting(ctx, *req.PlanSettingRef)
		if err != nil {
			return nil, err
		}
		merged.PlanSettingID = plan.ID
		prospective.planSettingID = plan.ID
	}
	if req.ClassRef != nil {
		class, err := s.resolver.ResolveClass(ctx, *req.ClassRef)
		if err != nil {
			return nil, err
		}
		merged.SetTarget(models.ClassTarget(class.ID))
		prospective.target = merged.Target()
		prospective.targetName = class.Name
	}
	if req.ClassBandRef != nil {
		band, err := s.resolver.ResolveClassBand(ctx, *req.ClassBandRef)
		if err != nil {
			return nil, err
		}
		merged.SetTarget(models.ClassBandTarget(band.ID))
		prospective.target = merged.Target()
		prospective.targetName = band.Name
	}
	if req.PeriodsPerWeek != nil {
		merged.PeriodsPerWeek = *req.PeriodsPerWeek
		prospective.periodsPerWeek = *req.PeriodsPerWeek
	}
	if req.IsFixed != nil {
		merged.IsFixed = *req.IsFixed
	}
	if req.Priority != nil {
		merged.Priority = *req.Priority
	}
	if req.Notes != nil {
		merged.Notes = *req.Notes
	}
	if req.Status != nil {
		merged.Status = *req.Status
		prospective.status = *req.Status
	}

	unlock := s.lockTeacher(merged.TeacherID)
	defer unlock()

	if err := s.constraints.validate(ctx, actor, prospective); err != nil {
		return nil, err
	}

	merged.ModifiedBy = actor.UserID
	if err := s.bindings.Update(ctx, &merged); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "binding not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update binding")
	}

	s.logger.Info("binding updated", zap.String("binding_id", merged.PublicID))
	return s.Get(ctx, actor, merged.PublicID)
}

// Delete soft-deletes the binding. Attached rules are left untouched.
func (s *BindingService) Delete(ctx context.Context, actor models.Actor, publicID string) error {
	existing, err := s.loadBinding(ctx, publicID)
	if err != nil {
		return err
	}
	if !actor.CanAccessOrganization(existing.OrganizationID) {
		return appErrors.Clone(appErrors.ErrForbidden, "binding belongs to another organization")
	}
	if err := s.bindings.SoftDelete(ctx, existing.ID, actor.UserID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "binding not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete binding")
	}
	s.logger.Info("binding deleted", zap.String("binding_id", publicID))
	return nil
}

// AttachRule adds a rule to the binding's rule set. Idempotent.
func (s *BindingService) AttachRule(ctx context.Context, actor models.Actor, bindingRef, ruleRef string) error {
	binding, rule, err := s.loadBindingAndRule(ctx, actor, bindingRef, ruleRef)
	if err != nil {
		return err
	}
	if err := s.bindings.AttachRule(ctx, binding.ID, rule.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach rule")
	}
	return nil
}

// DetachRule removes a rule from the binding's rule set. Idempotent.
func (s *BindingService) DetachRule(ctx context.Context, actor models.Actor, bindingRef, ruleRef string) error {
	binding, rule, err := s.loadBindingAndRule(ctx, actor, bindingRef, ruleRef)
	if err != nil {
		return err
	}
	if err := s.bindings.DetachRule(ctx, binding.ID, rule.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach rule")
	}
	return nil
}

func (s *BindingService) loadBindingAndRule(ctx context.Context, actor models.Actor, bindingRef, ruleRef string) (*models.BindingDetail, *models.EntityRef, error) {
	binding, err := s.loadBinding(ctx, bindingRef)
	if err != nil {
		return nil, nil, err
	}
	if !actor.CanAccessOrganization(binding.OrganizationID) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "binding belongs to another organization")
	}
	rule, err := s.resolver.ResolveRule(ctx, ruleRef)
	if err != nil {
		return nil, nil, err
	}
	if rule.OrganizationID != binding.OrganizationID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "rule belongs to another organization")
	}
	if !actor.CanAccessOrganization(rule.OrganizationID) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "rule is not accessible")
	}
	return binding, rule, nil
}

func (s *BindingService) loadBinding(ctx context.Context, publicID string) (*models.BindingDetail, error) {
	detail, err := s.bindings.FindByPublicID(ctx, publicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "binding not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load binding")
	}
	return detail, nil
}

func (s *BindingService) hydrateRules(ctx context.Context, detail *models.BindingDetail) (*models.BindingDetail, error) {
	refs, err := s.bindings.ListRuleRefs(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load binding rules")
	}
	detail.RuleRefs = refs
	return detail, nil
}

func (s *BindingService) resolveRules(ctx context.Context, refs []string) ([]*models.EntityRef, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	rules := make([]*models.EntityRef, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		rule, err := s.resolver.ResolveRule(ctx, ref)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func existingTargetName(detail *models.BindingDetail) string {
	if detail.ClassName != nil {
		return *detail.ClassName
	}
	if detail.ClassBandName != nil {
		return *detail.ClassBandName
	}
	return ""
}
