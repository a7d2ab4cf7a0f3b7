package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolplan/timetable-api/internal/models"
)

const bindingDetailColumns = `
b.id, b.public_id, b.organization_id, b.teacher_id, b.subject_id, b.room_id, b.plan_setting_id,
b.class_id, b.class_band_id, b.periods_per_week, b.is_fixed, b.priority, b.notes, b.status,
b.deleted, b.created_by, b.created_at, b.modified_by, b.modified_at,
t.full_name AS teacher_name, s.name AS subject_name, r.code AS room_code,
c.name AS class_name, cb.name AS class_band_name`

const bindingDetailJoins = `
FROM bindings b
JOIN teachers t ON t.id = b.teacher_id
JOIN subjects s ON s.id = b.subject_id
JOIN rooms r ON r.id = b.room_id
LEFT JOIN classes c ON c.id = b.class_id
LEFT JOIN class_bands cb ON cb.id = b.class_band_id`

// BindingRepository persists teacher/subject/room/class bindings.
type BindingRepository struct {
	db *sqlx.DB
}

// NewBindingRepository constructs the repository.
func NewBindingRepository(db *sqlx.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// FindByPublicID loads one non-deleted binding with its display fields.
// Returns sql.ErrNoRows when absent or soft-deleted.
func (r *BindingRepository) FindByPublicID(ctx context.Context, publicID string) (*models.BindingDetail, error) {
	query := `SELECT ` + bindingDetailColumns + bindingDetailJoins + `
WHERE b.public_id = $1 AND b.deleted = FALSE`
	var detail models.BindingDetail
	if err := r.db.GetContext(ctx, &detail, query, publicID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find binding %s: %w", publicID, err)
	}
	return &detail, nil
}

// ListByTeacher returns all non-deleted bindings of one teacher.
func (r *BindingRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.BindingDetail, error) {
	query := `SELECT ` + bindingDetailColumns + bindingDetailJoins + `
WHERE b.teacher_id = $1 AND b.deleted = FALSE
ORDER BY b.priority ASC, b.created_at ASC`
	var details []models.BindingDetail
	if err := r.db.SelectContext(ctx, &details, query, teacherID); err != nil {
		return nil, fmt.Errorf("list bindings for teacher %d: %w", teacherID, err)
	}
	return details, nil
}

// CountDuplicates counts non-deleted bindings sharing (teacher, subject,
// target), excluding the row identified by excludeID when positive.
func (r *BindingRepository) CountDuplicates(ctx context.Context, teacherID, subjectID int64, target models.BindingTarget, excludeID int64) (int, error) {
	targetColumn := "class_id"
	if target.Kind == models.TargetClassBand {
		targetColumn = "class_band_id"
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM bindings
WHERE teacher_id = $1 AND subject_id = $2 AND %s = $3 AND deleted = FALSE AND id <> $4`, targetColumn)
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, subjectID, target.ID, excludeID); err != nil {
		return 0, fmt.Errorf("count duplicate bindings: %w", err)
	}
	return count, nil
}

// SumPeriods totals periods_per_week over a teacher's non-deleted bindings
// within one plan setting, excluding the row identified by excludeID when
// positive.
func (r *BindingRepository) SumPeriods(ctx context.Context, teacherID, planSettingID, excludeID int64) (int, error) {
	const query = `SELECT COALESCE(SUM(periods_per_week), 0) FROM bindings
WHERE teacher_id = $1 AND plan_setting_id = $2 AND deleted = FALSE AND id <> $3`
	var sum int
	if err := r.db.GetContext(ctx, &sum, query, teacherID, planSettingID, excludeID); err != nil {
		return 0, fmt.Errorf("sum binding periods: %w", err)
	}
	return sum, nil
}

// Create inserts a new binding.
func (r *BindingRepository) Create(ctx context.Context, binding *models.Binding) error {
	if binding.PublicID == "" {
		binding.PublicID = uuid.NewString()
	}
	now := time.Now().UTC()
	if binding.CreatedAt.IsZero() {
		binding.CreatedAt = now
	}
	if binding.ModifiedAt.IsZero() {
		binding.ModifiedAt = now
	}
	const query = `INSERT INTO bindings
(public_id, organization_id, teacher_id, subject_id, room_id, plan_setting_id, class_id, class_band_id,
 periods_per_week, is_fixed, priority, notes, status, deleted, created_by, created_at, modified_by, modified_at)
VALUES (:public_id, :organization_id, :teacher_id, :subject_id, :room_id, :plan_setting_id, :class_id, :class_band_id,
 :periods_per_week, :is_fixed, :priority, :notes, :status, FALSE, :created_by, :created_at, :modified_by, :modified_at)
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, binding)
	if err != nil {
		return fmt.Errorf("create binding: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&binding.ID); err != nil {
			return fmt.Errorf("scan created binding id: %w", err)
		}
	}
	return rows.Err()
}

// Update rewrites all mutable columns of an existing binding.
func (r *BindingRepository) Update(ctx context.Context, binding *models.Binding) error {
	binding.ModifiedAt = time.Now().UTC()
	const query = `UPDATE bindings SET
teacher_id = :teacher_id, subject_id = :subject_id, room_id = :room_id, plan_setting_id = :plan_setting_id,
class_id = :class_id, class_band_id = :class_band_id, periods_per_week = :periods_per_week,
is_fixed = :is_fixed, priority = :priority, notes = :notes, status = :status,
modified_by = :modified_by, modified_at = :modified_at
WHERE id = :id AND deleted = FALSE`
	result, err := r.db.NamedExecContext(ctx, query, binding)
	if err != nil {
		return fmt.Errorf("update binding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated binding rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete flags the binding deleted; the row is retained.
func (r *BindingRepository) SoftDelete(ctx context.Context, id int64, modifiedBy string) error {
	const query = `UPDATE bindings SET deleted = TRUE, modified_by = $2, modified_at = $3
WHERE id = $1 AND deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, modifiedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete binding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted binding rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByFieldRef returns non-deleted bindings whose given reference column
// matches refID, optionally restricted to one organization. Ordered by
// creation so "single" replace mode is deterministic.
func (r *BindingRepository) ListByFieldRef(ctx context.Context, field models.ReplaceField, refID, organizationID int64) ([]models.Binding, error) {
	column, err := replaceColumn(field)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, public_id, organization_id, teacher_id, subject_id, room_id, plan_setting_id,
class_id, class_band_id, periods_per_week, is_fixed, priority, notes, status, deleted,
created_by, created_at, modified_by, modified_at
FROM bindings WHERE %s = $1 AND deleted = FALSE`, column)
	args := []interface{}{refID}
	if organizationID > 0 {
		query += ` AND organization_id = $2`
		args = append(args, organizationID)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	var bindings []models.Binding
	if err := r.db.SelectContext(ctx, &bindings, query, args...); err != nil {
		return nil, fmt.Errorf("list bindings by %s: %w", column, err)
	}
	return bindings, nil
}

// UpdateFieldRef rewrites one reference column of one binding.
func (r *BindingRepository) UpdateFieldRef(ctx context.Context, bindingID int64, field models.ReplaceField, refID int64, modifiedBy string) error {
	column, err := replaceColumn(field)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE bindings SET %s = $2, modified_by = $3, modified_at = $4
WHERE id = $1 AND deleted = FALSE`, column)
	result, err := r.db.ExecContext(ctx, query, bindingID, refID, modifiedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("replace binding %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check replaced binding rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AttachRule adds a rule to the binding's rule set. Idempotent.
func (r *BindingRepository) AttachRule(ctx context.Context, bindingID, ruleID int64) error {
	const query = `INSERT INTO binding_rules (binding_id, rule_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, bindingID, ruleID); err != nil {
		return fmt.Errorf("attach rule to binding: %w", err)
	}
	return nil
}

// DetachRule removes a rule from the binding's rule set. Idempotent.
func (r *BindingRepository) DetachRule(ctx context.Context, bindingID, ruleID int64) error {
	const query = `DELETE FROM binding_rules WHERE binding_id = $1 AND rule_id = $2`
	if _, err := r.db.ExecContext(ctx, query, bindingID, ruleID); err != nil {
		return fmt.Errorf("detach rule from binding: %w", err)
	}
	return nil
}

// ListRuleRefs returns the public ids of the binding's attached rules.
func (r *BindingRepository) ListRuleRefs(ctx context.Context, bindingID int64) ([]string, error) {
	const query = `SELECT ru.public_id FROM binding_rules br
JOIN rules ru ON ru.id = br.rule_id
WHERE br.binding_id = $1 AND ru.deleted = FALSE
ORDER BY ru.public_id`
	var refs []string
	if err := r.db.SelectContext(ctx, &refs, query, bindingID); err != nil {
		return nil, fmt.Errorf("list binding rules: %w", err)
	}
	return refs, nil
}

func replaceColumn(field models.ReplaceField) (string, error) {
	switch field {
	case models.ReplaceFieldTeacher:
		return "teacher_id", nil
	case models.ReplaceFieldSubject:
		return "subject_id", nil
	case models.ReplaceFieldRoom:
		return "room_id", nil
	default:
		return "", fmt.Errorf("unknown replace field %q", field)
	}
}
