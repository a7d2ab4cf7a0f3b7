package service

import (
	"context"
	"fmt"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

// prospectiveBinding is the identity-resolved state a create or update wants
// to commit. excludeID is the internal key of the binding under update; zero
// on create.
type prospectiveBinding struct {
	excludeID      int64
	organizationID int64
	teacherID      int64
	subjectID      int64
	roomID         int64
	planSettingID  int64
	target         models.BindingTarget
	periodsPerWeek int
	status         int
	rules          []*models.EntityRef

	// display fields carried through for error messages
	teacherName string
	subjectName string
	targetName  string
}

type bindingConstraintRepo interface {
	CountDuplicates(ctx context.Context, teacherID, subjectID int64, target models.BindingTarget, excludeID int64) (int, error)
	SumPeriods(ctx context.Context, teacherID, planSettingID, excludeID int64) (int, error)
}

type weeklyCapacityOracle interface {
	WeeklyCapacity(ctx context.Context, teacherID, planSettingID int64) int
}

// bindingValidator gates every binding mutation. Checks run in a fixed
// order and the first failure wins.
type bindingValidator struct {
	bindings bindingConstraintRepo
	capacity weeklyCapacityOracle
	metrics  *MetricsService
}

func newBindingValidator(bindings bindingConstraintRepo, capacity weeklyCapacityOracle, metrics *MetricsService) *bindingValidator {
	return &bindingValidator{bindings: bindings, capacity: capacity, metrics: metrics}
}

func (v *bindingValidator) validate(ctx context.Context, actor models.Actor, p prospectiveBinding) error {
	if err := v.checkRequired(p); err != nil {
		return v.reject(err)
	}
	if !actor.CanAccessOrganization(p.organizationID) {
		return v.reject(appErrors.Clone(appErrors.ErrForbidden, "binding belongs to another organization"))
	}
	if err := v.checkDuplicate(ctx, p); err != nil {
		return v.reject(err)
	}
	if err := v.checkWorkload(ctx, p); err != nil {
		return v.reject(err)
	}
	if err := v.checkRuleOwnership(actor, p); err != nil {
		return v.reject(err)
	}
	return nil
}

func (v *bindingValidator) reject(err error) error {
	if appErr := appErrors.FromError(err); appErr != nil {
		v.metrics.RecordValidationRejection(appErr.Code)
	}
	return err
}

func (v *bindingValidator) checkRequired(p prospectiveBinding) error {
	switch {
	case p.organizationID <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "organization is required")
	case p.teacherID <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "teacher is required")
	case p.subjectID <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "subject is required")
	case p.roomID <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "room is required")
	case p.planSettingID <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "plan setting is required")
	case p.periodsPerWeek <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "periods per week must be positive")
	case p.status <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "status is required")
	case !p.target.Valid():
		return appErrors.Clone(appErrors.ErrValidation, "exactly one of class or class band must be set")
	}
	return nil
}

// checkDuplicate enforces the uniqueness of (teacher, subject, class) and
// (teacher, subject, class band) among non-deleted bindings, ignoring the
// binding under update.
func (v *bindingValidator) checkDuplicate(ctx context.Context, p prospectiveBinding) error {
	count, err := v.bindings.CountDuplicates(ctx, p.teacherID, p.subjectID, p.target, p.excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check binding uniqueness")
	}
	if count > 0 {
		return appErrors.Clonef(appErrors.ErrDuplicateBinding,
			"%s already teaches %s to %s", p.teacherName, p.subjectName, p.targetName)
	}
	return nil
}

// checkWorkload enforces that the teacher's cumulative periods per week
// within the plan setting stay at or under the derived weekly capacity.
func (v *bindingValidator) checkWorkload(ctx context.Context, p prospectiveBinding) error {
	current, err := v.bindings.SumPeriods(ctx, p.teacherID, p.planSettingID, p.excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read teacher workload")
	}
	capacity := v.capacity.WeeklyCapacity(ctx, p.teacherID, p.planSettingID)
	if current+p.periodsPerWeek > capacity {
		return appErrors.Clonef(appErrors.ErrWorkloadExceeded,
			"weekly capacity is %d periods, current usage %d, requested %d", capacity, current, p.periodsPerWeek)
	}
	return nil
}

// checkRuleOwnership verifies every attached rule belongs to the binding's
// organization. Existence was already proven during resolution.
func (v *bindingValidator) checkRuleOwnership(actor models.Actor, p prospectiveBinding) error {
	for _, rule := range p.rules {
		if rule.OrganizationID != p.organizationID {
			return appErrors.Clone(appErrors.ErrForbidden,
				fmt.Sprintf("rule %s belongs to another organization", rule.PublicID))
		}
		if !actor.CanAccessOrganization(rule.OrganizationID) {
			return appErrors.Clone(appErrors.ErrForbidden,
				fmt.Sprintf("rule %s is not accessible", rule.PublicID))
		}
	}
	return nil
}
