package models

import "time"

// TargetKind discriminates what a binding teaches to: a single class or a
// class band (a named grouping of classes scheduled as one unit).
type TargetKind string

const (
	TargetClass     TargetKind = "CLASS"
	TargetClassBand TargetKind = "CLASS_BAND"
)

// BindingTarget is the tagged form of the class/class-band alternative. A
// zero-value target is invalid; constructors below are the only way to make
// a well-formed one, so "both set" and "neither set" are unrepresentable.
type BindingTarget struct {
	Kind TargetKind
	ID   int64
}

// ClassTarget builds a target pointing at a single class.
func ClassTarget(id int64) BindingTarget {
	return BindingTarget{Kind: TargetClass, ID: id}
}

// ClassBandTarget builds a target pointing at a class band.
func ClassBandTarget(id int64) BindingTarget {
	return BindingTarget{Kind: TargetClassBand, ID: id}
}

// Valid reports whether the target has been built by a constructor.
func (t BindingTarget) Valid() bool {
	return (t.Kind == TargetClass || t.Kind == TargetClassBand) && t.ID > 0
}

// Binding commits a teacher to teach a subject in a room to a class or
// class band for a number of periods per week, within one plan setting.
type Binding struct {
	ID             int64     `db:"id" json:"-"`
	PublicID       string    `db:"public_id" json:"id"`
	OrganizationID int64     `db:"organization_id" json:"-"`
	TeacherID      int64     `db:"teacher_id" json:"-"`
	SubjectID      int64     `db:"subject_id" json:"-"`
	RoomID         int64     `db:"room_id" json:"-"`
	PlanSettingID  int64     `db:"plan_setting_id" json:"-"`
	ClassID        *int64    `db:"class_id" json:"-"`
	ClassBandID    *int64    `db:"class_band_id" json:"-"`
	PeriodsPerWeek int       `db:"periods_per_week" json:"periods_per_week"`
	IsFixed        bool      `db:"is_fixed" json:"is_fixed"`
	Priority       int       `db:"priority" json:"priority"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
	Status         int       `db:"status" json:"status"`
	Deleted        bool      `db:"deleted" json:"-"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	ModifiedBy     string    `db:"modified_by" json:"modified_by"`
	ModifiedAt     time.Time `db:"modified_at" json:"modified_at"`
}

// Target returns the tagged class/class-band alternative. Exactly one of the
// two columns is set for every non-deleted row.
func (b *Binding) Target() BindingTarget {
	if b.ClassID != nil {
		return ClassTarget(*b.ClassID)
	}
	if b.ClassBandID != nil {
		return ClassBandTarget(*b.ClassBandID)
	}
	return BindingTarget{}
}

// SetTarget stores the target, clearing whichever column the new kind does
// not use.
func (b *Binding) SetTarget(t BindingTarget) {
	switch t.Kind {
	case TargetClass:
		id := t.ID
		b.ClassID = &id
		b.ClassBandID = nil
	case TargetClassBand:
		id := t.ID
		b.ClassBandID = &id
		b.ClassID = nil
	}
}

// BindingDetail enriches a binding with denormalized display fields and the
// attached rule references. Read-only projection for API responses.
type BindingDetail struct {
	Binding
	TeacherName   string   `db:"teacher_name" json:"teacher_name"`
	SubjectName   string   `db:"subject_name" json:"subject_name"`
	RoomCode      string   `db:"room_code" json:"room_code"`
	ClassName     *string  `db:"class_name" json:"class_name,omitempty"`
	ClassBandName *string  `db:"class_band_name" json:"class_band_name,omitempty"`
	RuleRefs      []string `db:"-" json:"rule_ids,omitempty"`
}

// ReplaceField enumerates the binding reference columns the bulk replace
// operation may rewrite.
type ReplaceField string

const (
	ReplaceFieldTeacher ReplaceField = "teacher"
	ReplaceFieldSubject ReplaceField = "subject"
	ReplaceFieldRoom    ReplaceField = "room"
)

// ReplaceMode selects the working set for a bulk replace.
type ReplaceMode string

const (
	ReplaceModeAll      ReplaceMode = "all"
	ReplaceModeSingle   ReplaceMode = "single"
	ReplaceModeSelected ReplaceMode = "selected"
)

// ReplaceOutcome records the result of rewriting one binding.
type ReplaceOutcome struct {
	BindingID string `json:"binding_id"`
	Replaced  bool   `json:"replaced"`
	Error     string `json:"error,omitempty"`
}

// ReplaceResult summarises a bulk replace run.
type ReplaceResult struct {
	Matched  int              `json:"matched"`
	Replaced int              `json:"replaced"`
	Message  string           `json:"message"`
	Outcomes []ReplaceOutcome `json:"outcomes,omitempty"`
}
