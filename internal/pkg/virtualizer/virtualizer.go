// Package virtualizer computes which rows of a long list intersect a scroll
// window, so that only those rows are materialized.
package virtualizer

import (
	"math"
	"sort"
	"strconv"
)

// Item is a materialized row.
type Item struct {
	Index int
	Key   string
	Start float64
	Size  float64
	End   float64
}

// Virtualizer tracks row sizes for a list of Count rows. Rows use the
// estimated size until Measure records their real size.
// It is not safe for concurrent use.
type Virtualizer struct {
	count    int
	estimate float64
	overscan int

	// measured indexes, kept sorted, with their size delta from the estimate
	measured []int
	delta    map[int]float64
}

// New returns a virtualizer for count rows of estimated size. Non-positive
// estimates fall back to 1px; negative overscan is treated as zero.
func New(count int, estimate float64, overscan int) *Virtualizer {
	if estimate <= 0 {
		estimate = 1
	}
	return &Virtualizer{
		count:    max(count, 0),
		estimate: estimate,
		overscan: max(overscan, 0),
		delta:    make(map[int]float64),
	}
}

func (v *Virtualizer) Count() int { return v.count }

// Reset replaces the row count and forgets every measurement.
func (v *Virtualizer) Reset(count int) {
	v.count = max(count, 0)
	v.measured = v.measured[:0]
	clear(v.delta)
}

// Measure records the rendered size of row index.
func (v *Virtualizer) Measure(index int, size float64) bool {
	if index < 0 || index >= v.count || !(size > 0) || math.IsInf(size, 0) {
		return false
	}
	if _, seen := v.delta[index]; !seen {
		i := sort.SearchInts(v.measured, index)
		v.measured = append(v.measured, 0)
		copy(v.measured[i+1:], v.measured[i:])
		v.measured[i] = index
	}
	v.delta[index] = size - v.estimate
	return true
}

// Size returns the row's measured size, or the estimate.
func (v *Virtualizer) Size(index int) float64 {
	return v.estimate + v.delta[index]
}

// Start returns the offset of row index from the top of the list.
func (v *Virtualizer) Start(index int) float64 {
	start := float64(index) * v.estimate
	for _, m := range v.measured {
		if m >= index {
			break
		}
		start += v.delta[m]
	}
	return start
}

// TotalSize is the scrollable height of the whole list.
func (v *Virtualizer) TotalSize() float64 {
	return v.Start(v.count)
}

// ClampScroll keeps offset inside [0, TotalSize-viewport].
func (v *Virtualizer) ClampScroll(offset, viewport float64) float64 {
	maxOffset := max(v.TotalSize()-viewport, 0)
	return min(max(offset, 0), maxOffset)
}

// Range returns the inclusive index range of rows to materialize for the
// window [offset, offset+viewport), overscan included. ok is false when
// nothing is visible.
func (v *Virtualizer) Range(offset, viewport float64) (first, last int, ok bool) {
	if v.count == 0 || viewport <= 0 {
		return 0, 0, false
	}
	offset = v.ClampScroll(offset, viewport)
	end := offset + viewport

	// first row whose bottom edge is below the window top
	first = sort.Search(v.count, func(i int) bool {
		return v.Start(i)+v.Size(i) > offset
	})
	// last row whose top edge is above the window bottom
	last = sort.Search(v.count, func(i int) bool {
		return v.Start(i) >= end
	}) - 1
	if first >= v.count || last < first {
		return 0, 0, false
	}

	first = max(first-v.overscan, 0)
	last = min(last+v.overscan, v.count-1)
	return first, last, true
}

// Items materializes the rows of Range.
func (v *Virtualizer) Items(offset, viewport float64) []Item {
	first, last, ok := v.Range(offset, viewport)
	if !ok {
		return nil
	}
	items := make([]Item, 0, last-first+1)
	start := v.Start(first)
	for i := first; i <= last; i++ {
		size := v.Size(i)
		items = append(items, Item{
			Index: i,
			Key:   strconv.Itoa(i),
			Start: start,
			Size:  size,
			End:   start + size,
		})
		start += size
	}
	return items
}
