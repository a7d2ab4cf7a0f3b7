package models

import (
	"fmt"
	"time"
)

// AvailabilityWindow is a teacher-declared open interval on one weekday.
// Start and end are minutes from midnight and the interval is half-open:
// [StartMinutes, EndMinutes).
type AvailabilityWindow struct {
	ID           int64     `db:"id" json:"-"`
	PublicID     string    `db:"public_id" json:"id"`
	TeacherID    int64     `db:"teacher_id" json:"-"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartMinutes int       `db:"start_minutes" json:"start_minutes"`
	EndMinutes   int       `db:"end_minutes" json:"end_minutes"`
	Deleted      bool      `db:"deleted" json:"-"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ModifiedBy   string    `db:"modified_by" json:"modified_by"`
	ModifiedAt   time.Time `db:"modified_at" json:"modified_at"`
}

// Duration returns the window length in minutes.
func (w *AvailabilityWindow) Duration() int {
	return w.EndMinutes - w.StartMinutes
}

// Label renders the window as "HH:MM-HH:MM" for conflict messages.
func (w *AvailabilityWindow) Label() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d",
		w.StartMinutes/60, w.StartMinutes%60, w.EndMinutes/60, w.EndMinutes%60)
}
