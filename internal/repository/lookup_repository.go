package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/schoolplan/timetable-api/internal/models"
)

// LookupRepository resolves externally-visible opaque identifiers into
// internal keys plus display fields. All lookups are scoped to non-deleted
// rows; sql.ErrNoRows means unresolved.
type LookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository constructs the repository.
func NewLookupRepository(db *sqlx.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

func (r *LookupRepository) resolve(ctx context.Context, table, nameColumn, publicID string) (*models.EntityRef, error) {
	query := fmt.Sprintf(`SELECT id, public_id, %s AS name, organization_id FROM %s
WHERE public_id = $1 AND deleted = FALSE`, nameColumn, table)
	var ref models.EntityRef
	if err := r.db.GetContext(ctx, &ref, query, publicID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("resolve %s %s: %w", table, publicID, err)
	}
	return &ref, nil
}

// Organization resolves an organization reference. Organizations have no
// parent, so OrganizationID mirrors ID.
func (r *LookupRepository) Organization(ctx context.Context, publicID string) (*models.EntityRef, error) {
	const query = `SELECT id, public_id, name, id AS organization_id FROM organizations
WHERE public_id = $1 AND deleted = FALSE`
	var ref models.EntityRef
	if err := r.db.GetContext(ctx, &ref, query, publicID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("resolve organization %s: %w", publicID, err)
	}
	return &ref, nil
}

// Teacher resolves a teacher reference.
func (r *LookupRepository) Teacher(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return r.resolve(ctx, "teachers", "full_name", publicID)
}

// Subject resolves a subject reference.
func (r *LookupRepository) Subject(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return r.resolve(ctx, "subjects", "name", publicID)
}

// Room resolves a room reference; rooms display by their code.
func (r *LookupRepository) Room(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return r.resolve(ctx, "rooms", "code", publicID)
}

// Class resolves a class reference.
func (r *LookupRepository) Class(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return r.resolve(ctx, "classes", "name", publicID)
}

// ClassBand resolves a class-band reference.
func (r *LookupRepository) ClassBand(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return r.resolve(ctx, "class_bands", "name", publicID)
}

// Rule resolves a scheduling-rule reference.
func (r *LookupRepository) Rule(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return r.resolve(ctx, "rules", "name", publicID)
}

// PlanSetting resolves a plan-setting reference.
func (r *LookupRepository) PlanSetting(ctx context.Context, publicID string) (*models.EntityRef, error) {
	return r.resolve(ctx, "plan_settings", "name", publicID)
}

// PlanSettingByID loads the capacity inputs of a plan setting by internal key.
func (r *LookupRepository) PlanSettingByID(ctx context.Context, id int64) (*models.PlanSetting, error) {
	const query = `SELECT id, public_id, organization_id, name, periods_per_day, days_per_week, deleted
FROM plan_settings WHERE id = $1 AND deleted = FALSE`
	var setting models.PlanSetting
	if err := r.db.GetContext(ctx, &setting, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load plan setting %d: %w", id, err)
	}
	return &setting, nil
}

// TeacherOrganization returns the owning organization of a teacher by
// internal key.
func (r *LookupRepository) TeacherOrganization(ctx context.Context, teacherID int64) (int64, error) {
	const query = `SELECT organization_id FROM teachers WHERE id = $1 AND deleted = FALSE`
	var orgID int64
	if err := r.db.GetContext(ctx, &orgID, query, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("load teacher organization: %w", err)
	}
	return orgID, nil
}

// TeacherMaxDailyPeriods returns a teacher's declared daily period limit, or
// nil when none is declared.
func (r *LookupRepository) TeacherMaxDailyPeriods(ctx context.Context, teacherID int64) (*int, error) {
	const query = `SELECT max_daily_periods FROM teachers WHERE id = $1 AND deleted = FALSE`
	var limit sql.NullInt64
	if err := r.db.GetContext(ctx, &limit, query, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load teacher daily limit: %w", err)
	}
	if !limit.Valid {
		return nil, nil
	}
	value := int(limit.Int64)
	return &value, nil
}
