package values

import (
	"fmt"
	"slices"
	"strings"
)

// Recurrence holds the four streams of a parsed recurrence block. Each
// collection only accepts objects whose property name matches its role.
type Recurrence struct {
	inclusionRules []*RRule
	inclusionDates []*RDateList
	exclusionRules []*RRule
	exclusionDates []*RDateList
}

func (r *Recurrence) InclusionRules() []*RRule     { return slices.Clone(r.inclusionRules) }
func (r *Recurrence) InclusionDates() []*RDateList { return slices.Clone(r.inclusionDates) }
func (r *Recurrence) ExclusionRules() []*RRule     { return slices.Clone(r.exclusionRules) }
func (r *Recurrence) ExclusionDates() []*RDateList { return slices.Clone(r.exclusionDates) }

// IsEmpty reports whether nothing has been added.
func (r *Recurrence) IsEmpty() bool {
	return len(r.inclusionRules) == 0 && len(r.inclusionDates) == 0 &&
		len(r.exclusionRules) == 0 && len(r.exclusionDates) == 0
}

// AddInclusionRule appends an RRULE.
func (r *Recurrence) AddInclusionRule(rule *RRule) error {
	if err := checkRole(rule, "RRULE"); err != nil {
		return err
	}
	r.inclusionRules = append(r.inclusionRules, rule)
	return nil
}

// AddInclusionDateList appends an RDATE.
func (r *Recurrence) AddInclusionDateList(list *RDateList) error {
	if err := checkRole(list, "RDATE"); err != nil {
		return err
	}
	r.inclusionDates = append(r.inclusionDates, list)
	return nil
}

// AddExclusionRule appends an EXRULE.
func (r *Recurrence) AddExclusionRule(rule *RRule) error {
	if err := checkRole(rule, "EXRULE"); err != nil {
		return err
	}
	r.exclusionRules = append(r.exclusionRules, rule)
	return nil
}

// AddExclusionDateList appends an EXDATE.
func (r *Recurrence) AddExclusionDateList(list *RDateList) error {
	if err := checkRole(list, "EXDATE"); err != nil {
		return err
	}
	r.exclusionDates = append(r.exclusionDates, list)
	return nil
}

// add routes obj to the collection named by its property.
func (r *Recurrence) add(obj Object) error {
	switch o := obj.(type) {
	case *RRule:
		if strings.EqualFold(o.Name, "EXRULE") {
			return r.AddExclusionRule(o)
		}
		return r.AddInclusionRule(o)
	case *RDateList:
		if strings.EqualFold(o.Name, "EXDATE") {
			return r.AddExclusionDateList(o)
		}
		return r.AddInclusionDateList(o)
	default:
		return fmt.Errorf("%w: unsupported object %T", ErrInvalidArgument, obj)
	}
}

func checkRole(obj Object, want string) error {
	if obj == nil || isNilObject(obj) {
		return fmt.Errorf("%w: expecting non-nil object", ErrInvalidArgument)
	}
	if !strings.EqualFold(obj.PropertyName(), want) {
		return fmt.Errorf("%w: expecting %s, got %s", ErrInvalidArgument, want, obj.PropertyName())
	}
	return nil
}

func isNilObject(obj Object) bool {
	switch o := obj.(type) {
	case *RRule:
		return o == nil
	case *RDateList:
		return o == nil
	}
	return false
}
