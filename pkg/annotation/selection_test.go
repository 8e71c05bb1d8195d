package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictsAt(t *testing.T) {
	s := newTestStore()
	_, ok := s.Add(2.0, f(4.0), "RUN", "", "")
	require.True(t, ok)

	t.Run("strictly inside an interval conflicts", func(t *testing.T) {
		assert.True(t, s.ConflictsAt(3.0))
	})

	t.Run("touching either bound conflicts", func(t *testing.T) {
		assert.True(t, s.ConflictsAt(2.0))
		assert.True(t, s.ConflictsAt(4.0))
	})

	t.Run("outside the interval does not conflict", func(t *testing.T) {
		assert.False(t, s.ConflictsAt(5.0))
		assert.False(t, s.ConflictsAt(1.0))
	})

	t.Run("candidates quantize before the check", func(t *testing.T) {
		//3.99 snaps onto the 4.0 bound
		assert.True(t, s.ConflictsAt(3.99))
	})
}

func TestConflictsAtReversedInterval(t *testing.T) {
	//records may be stored with end < start; bounds compare order-independently
	s := newTestStore()
	_, ok := s.Add(4.0, f(2.0), "RUN", "", "")
	require.True(t, ok)

	assert.True(t, s.ConflictsAt(3.0))
	assert.False(t, s.ConflictsAt(5.0))
}

func TestConflictsAtPointRecord(t *testing.T) {
	s := newTestStore()
	_, ok := s.Add(2.0, nil, "SPIN", "", "")
	require.True(t, ok)

	assert.True(t, s.ConflictsAt(2.0))
	assert.False(t, s.ConflictsAt(2.5))
}

func TestSelectionDrag(t *testing.T) {
	t.Run("dragging the end past the start swaps the bounds", func(t *testing.T) {
		var sel Selection
		sel.SetStart(5.0)
		sel.BeginDrag(DragEnd)
		sel.DragTo(3.0)
		sel.EndDrag()

		lo, hi, ok := sel.Range()
		require.True(t, ok)
		assert.Equal(t, 3.0, lo)
		assert.Equal(t, 5.0, hi)
		assert.Equal(t, DragNone, sel.Dragging)
	})

	t.Run("dragging the start past the end swaps the bounds", func(t *testing.T) {
		var sel Selection
		sel.SetStart(1.0)
		sel.SetEnd(2.0)
		sel.BeginDrag(DragStart)
		sel.DragTo(6.0)

		lo, hi, ok := sel.Range()
		require.True(t, ok)
		assert.Equal(t, 2.0, lo)
		assert.Equal(t, 6.0, hi)
	})

	t.Run("range needs both bounds", func(t *testing.T) {
		var sel Selection
		sel.SetStart(1.0)
		_, _, ok := sel.Range()
		assert.False(t, ok)

		lo, ok := sel.Low()
		assert.True(t, ok)
		assert.Equal(t, 1.0, lo)
	})

	t.Run("clear resets bounds and drag state", func(t *testing.T) {
		var sel Selection
		sel.SetStart(1.0)
		sel.SetEnd(2.0)
		sel.BeginDrag(DragStart)
		sel.Clear()

		assert.Nil(t, sel.Start)
		assert.Nil(t, sel.End)
		assert.Equal(t, DragNone, sel.Dragging)
	})
}
