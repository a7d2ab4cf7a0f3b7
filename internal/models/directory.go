package models

import "time"

// EntityRef is the resolved form of an external opaque identifier: the
// internal key plus the display fields list projections need.
type EntityRef struct {
	ID             int64  `db:"id" json:"-"`
	PublicID       string `db:"public_id" json:"id"`
	Name           string `db:"name" json:"name"`
	OrganizationID int64  `db:"organization_id" json:"-"`
}

// Organization is a tenant. All directory entities hang off one.
type Organization struct {
	ID        int64     `db:"id" json:"-"`
	PublicID  string    `db:"public_id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Deleted   bool      `db:"deleted" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Teacher is a directory entry for a teaching staff member.
// MaxDailyPeriods feeds the weekly-capacity fallback when a binding has no
// plan setting to derive capacity from.
type Teacher struct {
	ID              int64     `db:"id" json:"-"`
	PublicID        string    `db:"public_id" json:"id"`
	OrganizationID  int64     `db:"organization_id" json:"-"`
	FullName        string    `db:"full_name" json:"full_name"`
	Email           string    `db:"email" json:"email"`
	MaxDailyPeriods *int      `db:"max_daily_periods" json:"max_daily_periods,omitempty"`
	Deleted         bool      `db:"deleted" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	ModifiedAt      time.Time `db:"modified_at" json:"modified_at"`
}

// PlanSetting defines periods-per-day and days-per-week for one timetable
// plan. The capacity oracle multiplies the two to derive a teacher's weekly
// period ceiling. Owned by the plan-setting service; read-only here.
type PlanSetting struct {
	ID             int64  `db:"id" json:"-"`
	PublicID       string `db:"public_id" json:"id"`
	OrganizationID int64  `db:"organization_id" json:"-"`
	Name           string `db:"name" json:"name"`
	PeriodsPerDay  int    `db:"periods_per_day" json:"periods_per_day"`
	DaysPerWeek    int    `db:"days_per_week" json:"days_per_week"`
	Deleted        bool   `db:"deleted" json:"-"`
}

// WeeklyCapacity returns the plan's derived period ceiling, or 0 when the
// plan is not configured.
func (p *PlanSetting) WeeklyCapacity() int {
	if p == nil || p.PeriodsPerDay <= 0 || p.DaysPerWeek <= 0 {
		return 0
	}
	return p.PeriodsPerDay * p.DaysPerWeek
}
