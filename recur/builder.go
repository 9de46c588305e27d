package recur

import "github.com/cyp0633/librecur/values"

// Builder accumulates the fields of a candidate date. Generators overwrite
// the field they own; out of range values carry into coarser fields when
// the builder is frozen.
type Builder struct {
	Year, Month, Day     int
	Hour, Minute, Second int

	hasTime bool
}

// NewBuilder returns a builder initialized from dv, including its time of
// day if it has one.
func NewBuilder(dv values.DateValue) *Builder {
	return &Builder{
		Year: dv.Year(), Month: dv.Month(), Day: dv.Day(),
		Hour: dv.Hour(), Minute: dv.Minute(), Second: dv.Second(),
		hasTime: dv.HasTime(),
	}
}

// ToDate freezes the date fields.
func (b *Builder) ToDate() values.DateValue {
	return values.NewDate(b.Year, b.Month, b.Day)
}

// ToDateTime freezes all fields.
func (b *Builder) ToDateTime() values.DateValue {
	return values.NewDateTime(b.Year, b.Month, b.Day, b.Hour, b.Minute, b.Second)
}

// Value is ToDateTime for builders created from a date-time and ToDate
// otherwise.
func (b *Builder) Value() values.DateValue {
	if b.hasTime {
		return b.ToDateTime()
	}
	return b.ToDate()
}

// CompareDate compares the date of b with the date of d.
func (b *Builder) CompareDate(d values.DateValue) int {
	return b.ToDate().Compare(d.DateOnly())
}

func (b *Builder) setDate(d values.DateValue) {
	b.Year, b.Month, b.Day = d.Year(), d.Month(), d.Day()
}
