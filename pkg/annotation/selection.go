package annotation

import (
	"math"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/timecode"
)

//DragHandle identifies which selection handle, if any, is being dragged.
//Only one handle can be active at a time.
type DragHandle int

const (
	DragNone DragHandle = iota
	DragStart
	DragEnd
)

//Selection tracks an in-progress (start, end) time selection. Both bounds
//are optional and independent - the start is usually set before the end.
//Values are raw seconds; quantization happens when the selection is
//committed to the store or checked for conflicts.
type Selection struct {
	Start    *float64
	End      *float64
	Dragging DragHandle
}

//SetStart pins the selection start at given time
func (sel *Selection) SetStart(t float64) {
	sel.Start = &t
}

//SetEnd pins the selection end at given time
func (sel *Selection) SetEnd(t float64) {
	sel.End = &t
}

//BeginDrag activates one of the handles
func (sel *Selection) BeginDrag(h DragHandle) {
	sel.Dragging = h
}

//DragTo moves the active handle to given time. Dragging a handle past its
//counterpart swaps the two so Start stays the lower bound.
func (sel *Selection) DragTo(t float64) {
	switch sel.Dragging {
	case DragStart:
		end := t
		if sel.End != nil {
			end = *sel.End
		}
		if t > end {
			sel.Start = &end
			sel.End = &t
			return
		}
		sel.Start = &t
	case DragEnd:
		start := t
		if sel.Start != nil {
			start = *sel.Start
		}
		if t < start {
			sel.End = &start
			sel.Start = &t
			return
		}
		sel.End = &t
	}
}

//EndDrag releases the active handle
func (sel *Selection) EndDrag() {
	sel.Dragging = DragNone
}

//Clear resets both bounds and any in-progress drag
func (sel *Selection) Clear() {
	sel.Start = nil
	sel.End = nil
	sel.Dragging = DragNone
}

//Range returns the ordered (low, high) bounds. ok is false until both are set.
func (sel *Selection) Range() (lo, hi float64, ok bool) {
	if sel.Start == nil || sel.End == nil {
		return 0, 0, false
	}
	return math.Min(*sel.Start, *sel.End), math.Max(*sel.Start, *sel.End), true
}

//Low returns the lower bound when only the start is set
func (sel *Selection) Low() (float64, bool) {
	if sel.Start == nil {
		return 0, false
	}
	if sel.End != nil {
		return math.Min(*sel.Start, *sel.End), true
	}
	return *sel.Start, true
}

//ConflictsAt reports whether a proposed annotation start collides with an
//existing record: the quantized candidate either falls strictly inside a
//record's [start, end] interval, or lies within half a frame period of
//either bound. Records may be stored with end < start; bounds are compared
//order-independently. A conflicting candidate must not be committed.
func ConflictsAt(records []Record, quant timecode.Quantizer, start float64) bool {
	key := quant.Key(start)
	eps := quant.Eps()

	for _, r := range records {
		s := r.StartKey
		e := s
		if r.EndKey != nil {
			e = *r.EndKey
		}
		lo := math.Min(s, e)
		hi := math.Max(s, e)
		if key > lo && key < hi {
			return true
		}
		if math.Abs(key-lo) <= eps || math.Abs(key-hi) <= eps {
			return true
		}
	}
	return false
}

//ConflictsAt checks a proposed start against the store's current contents
func (s *Store) ConflictsAt(start float64) bool {
	return ConflictsAt(s.Snapshot(), s.quant, start)
}
