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

const availabilityColumns = `id, public_id, teacher_id, day_of_week, start_minutes, end_minutes,
deleted, created_by, created_at, modified_by, modified_at`

// AvailabilityRepository persists teacher availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// FindByPublicID loads one non-deleted window. Returns sql.ErrNoRows when
// absent or soft-deleted.
func (r *AvailabilityRepository) FindByPublicID(ctx context.Context, publicID string) (*models.AvailabilityWindow, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_windows
WHERE public_id = $1 AND deleted = FALSE`
	var window models.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, publicID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability window %s: %w", publicID, err)
	}
	return &window, nil
}

// ListByTeacherAndDay returns a teacher's non-deleted windows on one weekday,
// excluding the row identified by excludeID when positive.
func (r *AvailabilityRepository) ListByTeacherAndDay(ctx context.Context, teacherID int64, dayOfWeek int, excludeID int64) ([]models.AvailabilityWindow, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_windows
WHERE teacher_id = $1 AND day_of_week = $2 AND deleted = FALSE AND id <> $3
ORDER BY start_minutes ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, teacherID, dayOfWeek, excludeID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ListByTeacher returns all non-deleted windows of one teacher.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_windows
WHERE teacher_id = $1 AND deleted = FALSE
ORDER BY day_of_week ASC, start_minutes ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return windows, nil
}

// Create inserts a new window.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.PublicID == "" {
		window.PublicID = uuid.NewString()
	}
	now := time.Now().UTC()
	if window.CreatedAt.IsZero() {
		window.CreatedAt = now
	}
	if window.ModifiedAt.IsZero() {
		window.ModifiedAt = now
	}
	const query = `INSERT INTO availability_windows
(public_id, teacher_id, day_of_week, start_minutes, end_minutes, deleted, created_by, created_at, modified_by, modified_at)
VALUES (:public_id, :teacher_id, :day_of_week, :start_minutes, :end_minutes, FALSE, :created_by, :created_at, :modified_by, :modified_at)
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, window)
	if err != nil {
		return fmt.Errorf("create availability window: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&window.ID); err != nil {
			return fmt.Errorf("scan created window id: %w", err)
		}
	}
	return rows.Err()
}

// Update rewrites the window's interval columns.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	window.ModifiedAt = time.Now().UTC()
	const query = `UPDATE availability_windows SET
day_of_week = :day_of_week, start_minutes = :start_minutes, end_minutes = :end_minutes,
modified_by = :modified_by, modified_at = :modified_at
WHERE id = :id AND deleted = FALSE`
	result, err := r.db.NamedExecContext(ctx, query, window)
	if err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated window rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete flags the window deleted; the row is retained.
func (r *AvailabilityRepository) SoftDelete(ctx context.Context, id int64, modifiedBy string) error {
	const query = `UPDATE availability_windows SET deleted = TRUE, modified_by = $2, modified_at = $3
WHERE id = $1 AND deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, modifiedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete availability window: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted window rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
