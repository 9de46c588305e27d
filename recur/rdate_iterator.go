package recur

import (
	"slices"

	"github.com/cyp0633/librecur/values"
)

// RDateIterator walks an explicit list of dates in ascending order.
type RDateIterator struct {
	dates []values.DateValue
	i     int
}

// NewRDateIterator returns an iterator over dates, sorted and with
// duplicates removed. dates is not modified.
func NewRDateIterator(dates []values.DateValue) *RDateIterator {
	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, values.DateValue.Compare)
	sorted = slices.CompactFunc(sorted, values.DateValue.Equal)
	return &RDateIterator{dates: sorted}
}

// NewRDateListIterator returns an iterator over the dates of every list.
func NewRDateListIterator(lists ...*values.RDateList) *RDateIterator {
	var dates []values.DateValue
	for _, l := range lists {
		dates = append(dates, l.Dates...)
	}
	return NewRDateIterator(dates)
}

func (it *RDateIterator) HasNext() bool {
	return it.i < len(it.dates)
}

func (it *RDateIterator) Next() values.DateValue {
	if it.i >= len(it.dates) {
		return values.DateValue{}
	}
	d := it.dates[it.i]
	it.i++
	return d
}

func (it *RDateIterator) AdvanceTo(d values.DateValue) {
	rest := it.dates[it.i:]
	n, _ := slices.BinarySearchFunc(rest, d, values.DateValue.Compare)
	it.i += n
}
