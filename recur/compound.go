package recur

import (
	"container/heap"
	"errors"

	"github.com/cyp0633/librecur/values"
)

// heapEntry is an iterator together with the value it produced last, which
// orders it in the heap.
type heapEntry struct {
	head values.DateValue
	it   RecurrenceIterator
}

type iteratorHeap []*heapEntry

func (h iteratorHeap) Len() int           { return len(h) }
func (h iteratorHeap) Less(i, j int) bool { return h[i].head.Before(h[j].head) }
func (h iteratorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *iteratorHeap) Push(x any)        { *h = append(*h, x.(*heapEntry)) }
func (h *iteratorHeap) Pop() any {
	old := *h
	e := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return e
}

// push adds it if it has a value left.
func (h *iteratorHeap) push(it RecurrenceIterator) {
	if it.HasNext() {
		heap.Push(h, &heapEntry{head: it.Next(), it: it})
	}
}

// shift replaces the top entry's head with the next value of its iterator,
// dropping the entry once the iterator is exhausted.
func (h *iteratorHeap) shift() {
	top := (*h)[0]
	if top.it.HasNext() {
		top.head = top.it.Next()
		heap.Fix(h, 0)
		return
	}
	heap.Pop(h)
}

// advanceTo moves every iterator whose head is before d.
func (h *iteratorHeap) advanceTo(d values.DateValue) {
	for h.Len() > 0 && (*h)[0].head.Before(d) {
		top := (*h)[0]
		top.it.AdvanceTo(d)
		h.shift()
	}
}

// CompoundIterator merges inclusion iterators into one ascending stream
// without duplicates, leaving out every value an exclusion iterator
// produces.
type CompoundIterator struct {
	all        []RecurrenceIterator
	inclusions iteratorHeap
	exclusions iteratorHeap

	pending    values.DateValue
	hasPending bool
	last       values.DateValue
	emitted    bool
}

// Join returns a CompoundIterator over inclusions minus exclusions.
func Join(inclusions, exclusions []RecurrenceIterator) *CompoundIterator {
	c := &CompoundIterator{}
	for _, it := range inclusions {
		c.all = append(c.all, it)
		c.inclusions.push(it)
	}
	for _, it := range exclusions {
		c.all = append(c.all, it)
		c.exclusions.push(it)
	}
	return c
}

func (c *CompoundIterator) fetchNext() {
	for !c.hasPending && c.inclusions.Len() > 0 {
		d := c.inclusions[0].head
		c.inclusions.shift()
		if c.emitted && !d.After(c.last) {
			continue
		}
		c.exclusions.advanceTo(d)
		if c.exclusions.Len() > 0 && c.exclusions[0].head.Equal(d) {
			continue
		}
		c.pending, c.hasPending = d, true
		c.last, c.emitted = d, true
	}
}

func (c *CompoundIterator) HasNext() bool {
	c.fetchNext()
	return c.hasPending
}

func (c *CompoundIterator) Next() values.DateValue {
	c.fetchNext()
	if !c.hasPending {
		return values.DateValue{}
	}
	c.hasPending = false
	return c.pending
}

func (c *CompoundIterator) AdvanceTo(d values.DateValue) {
	if c.hasPending {
		if !c.pending.Before(d) {
			return
		}
		c.hasPending = false
	}
	c.inclusions.advanceTo(d)
}

// Err joins the errors of the underlying iterators that report one, such as
// a rule that short-circuited.
func (c *CompoundIterator) Err() error {
	var errs []error
	for _, it := range c.all {
		if e, ok := it.(interface{ Err() error }); ok {
			if err := e.Err(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
