package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

// ReplaceBindingFieldRequest asks for a bulk rewrite of one reference column
// across matching bindings.
type ReplaceBindingFieldRequest struct {
	FieldType       string   `json:"field_type" validate:"required"`
	SearchRef       string   `json:"search_id" validate:"required"`
	ReplaceRef      string   `json:"replace_id" validate:"required"`
	Mode            string   `json:"mode" validate:"required"`
	SelectedIDs     []string `json:"selected_ids,omitempty"`
	OrganizationRef string   `json:"organization_id,omitempty"`
}

// ReplaceField rewrites the teacher, subject or room reference of every
// binding in the selected working set. Records are validated and persisted
// independently: a record that fails is reported in its outcome and the
// batch continues.
func (s *BindingService) ReplaceField(ctx context.Context, actor models.Actor, req ReplaceBindingFieldRequest) (*models.ReplaceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid replace payload")
	}

	field := models.ReplaceField(req.FieldType)
	switch field {
	case models.ReplaceFieldTeacher, models.ReplaceFieldSubject, models.ReplaceFieldRoom:
	default:
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unknown field type %q", req.FieldType)
	}

	mode := models.ReplaceMode(req.Mode)
	switch mode {
	case models.ReplaceModeAll, models.ReplaceModeSingle, models.ReplaceModeSelected:
	default:
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unknown replace mode %q", req.Mode)
	}
	if mode == models.ReplaceModeSelected && len(req.SelectedIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selected mode requires at least one binding id")
	}
	if req.SearchRef == req.ReplaceRef {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search and replace references must differ")
	}

	search, err := s.resolveReplaceRef(ctx, field, req.SearchRef)
	if err != nil {
		return nil, err
	}
	replace, err := s.resolveReplaceRef(ctx, field, req.ReplaceRef)
	if err != nil {
		return nil, err
	}

	organizationID, err := s.replaceScope(ctx, actor, req.OrganizationRef)
	if err != nil {
		return nil, err
	}

	matches, err := s.bindings.ListByFieldRef(ctx, field, search.ID, organizationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search bindings")
	}
	if len(matches) == 0 {
		return &models.ReplaceResult{Message: fmt.Sprintf("no bindings reference %s %s", field, search.PublicID)}, nil
	}

	working := selectWorkingSet(matches, mode, req.SelectedIDs)

	result := &models.ReplaceResult{Matched: len(matches)}
	for i := range working {
		binding := &working[i]
		outcome := models.ReplaceOutcome{BindingID: binding.PublicID}
		if err := s.replaceOne(ctx, actor, binding, field, replace); err != nil {
			outcome.Error = appErrors.FromError(err).Message
			s.logger.Warn("replace skipped binding",
				zap.String("binding_id", binding.PublicID), zap.Error(err))
		} else {
			outcome.Replaced = true
			result.Replaced++
		}
		s.constraints.metrics.RecordReplaceOutcome(outcome.Replaced)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.Message = fmt.Sprintf("replaced %s on %d of %d selected bindings (%d matched)",
		field, result.Replaced, len(working), result.Matched)
	s.logger.Info("bulk replace finished",
		zap.String("field", string(field)),
		zap.String("search", search.PublicID),
		zap.String("replace", replace.PublicID),
		zap.Int("replaced", result.Replaced))
	return result, nil
}

// replaceOne re-validates the record with the reference swapped in, then
// persists just that column. Room swaps cannot violate uniqueness or
// workload, so only teacher and subject swaps re-run those checks.
func (s *BindingService) replaceOne(ctx context.Context, actor models.Actor, binding *models.Binding, field models.ReplaceField, replace *models.EntityRef) error {
	prospective := prospectiveBinding{
		excludeID:      binding.ID,
		organizationID: binding.OrganizationID,
		teacherID:      binding.TeacherID,
		subjectID:      binding.SubjectID,
		roomID:         binding.RoomID,
		planSettingID:  binding.PlanSettingID,
		target:         binding.Target(),
		periodsPerWeek: binding.PeriodsPerWeek,
		status:         binding.Status,
		teacherName:    "teacher",
		subjectName:    "subject",
		targetName:     "target",
	}

	switch field {
	case models.ReplaceFieldTeacher:
		prospective.teacherID = replace.ID
		prospective.teacherName = replace.Name
	case models.ReplaceFieldSubject:
		prospective.subjectID = replace.ID
		prospective.subjectName = replace.Name
	}

	if field != models.ReplaceFieldRoom {
		unlock := s.lockTeacher(prospective.teacherID)
		defer unlock()
		if err := s.constraints.checkDuplicate(ctx, prospective); err != nil {
			return err
		}
		if err := s.constraints.checkWorkload(ctx, prospective); err != nil {
			return err
		}
	}

	if err := s.bindings.UpdateFieldRef(ctx, binding.ID, field, replace.ID, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewrite binding")
	}
	return nil
}

func (s *BindingService) resolveReplaceRef(ctx context.Context, field models.ReplaceField, ref string) (*models.EntityRef, error) {
	switch field {
	case models.ReplaceFieldTeacher:
		return s.resolver.ResolveTeacher(ctx, ref)
	case models.ReplaceFieldSubject:
		return s.resolver.ResolveSubject(ctx, ref)
	default:
		return s.resolver.ResolveRoom(ctx, ref)
	}
}

// replaceScope returns the organization id the search is confined to. Non
// admin callers are always confined to their own organization; the optional
// filter only narrows admin searches.
func (s *BindingService) replaceScope(ctx context.Context, actor models.Actor, organizationRef string) (int64, error) {
	if !actor.IsAdmin() {
		return actor.OrganizationID, nil
	}
	if organizationRef == "" {
		return 0, nil
	}
	org, err := s.resolver.ResolveOrganization(ctx, organizationRef)
	if err != nil {
		return 0, err
	}
	return org.ID, nil
}

func selectWorkingSet(matches []models.Binding, mode models.ReplaceMode, selectedIDs []string) []models.Binding {
	switch mode {
	case models.ReplaceModeSingle:
		return matches[:1]
	case models.ReplaceModeSelected:
		selected := make(map[string]struct{}, len(selectedIDs))
		for _, id := range selectedIDs {
			selected[id] = struct{}{}
		}
		working := make([]models.Binding, 0, len(selectedIDs))
		for _, match := range matches {
			if _, ok := selected[match.PublicID]; ok {
				working = append(working, match)
			}
		}
		return working
	default:
		return matches
	}
}
