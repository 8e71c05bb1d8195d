package video

import (
	"math"
	"strings"
	"sync"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/annotation"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/timecode"
)

//DefaultStepMs is one frame at 30fps
const DefaultStepMs = 33.33

//Session is the scrubbing and selection state for one loaded video. The
//mutually exclusive bits of in-progress state (which drag handle is active,
//whether a selection exists) live here as explicit fields instead of
//scattered flags. HTTP handlers run on their own goroutines, so every field
//is guarded by the mutex and read out through State.
type Session struct {
	store *annotation.Store
	quant timecode.Quantizer

	mu        sync.Mutex
	selection annotation.Selection
	duration  float64
	current   float64
	stepMs    float64
}

//SessionState is a point-in-time view of the session for the API
type SessionState struct {
	Current  float64
	Duration float64
	SelStart *float64
	SelEnd   *float64
	Conflict bool
}

//NewSession returns a session bound to given store
func NewSession(store *annotation.Store) *Session {
	return &Session{
		store:  store,
		quant:  store.Quantizer(),
		stepMs: DefaultStepMs,
	}
}

//SetDuration records the media length once metadata is known
func (s *Session) SetDuration(d float64) {
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		d = 0
	}
	s.mu.Lock()
	s.duration = d
	s.mu.Unlock()
}

//Duration returns the media length in seconds
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

//Current returns the playhead position
func (s *Session) Current() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

//SetStepMs sets the frame-step size in milliseconds
func (s *Session) SetStepMs(ms float64) {
	if ms <= 0 {
		return
	}
	s.mu.Lock()
	s.stepMs = ms
	s.mu.Unlock()
}

//Seek moves the playhead, clamped to the media bounds
func (s *Session) Seek(t float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekLocked(t)
}

func (s *Session) seekLocked(t float64) float64 {
	s.current = s.clampLocked(t)
	return s.current
}

//Step nudges the playhead by one step in given direction (-1 or +1)
func (s *Session) Step(dir int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekLocked(s.current + float64(dir)*s.stepMs/1000)
}

//MarkStart pins the selection start at the playhead
func (s *Session) MarkStart() {
	s.mu.Lock()
	s.selection.SetStart(s.clampLocked(s.current))
	s.mu.Unlock()
}

//MarkEnd pins the selection end at the playhead
func (s *Session) MarkEnd() {
	s.mu.Lock()
	s.selection.SetEnd(s.clampLocked(s.current))
	s.mu.Unlock()
}

//ClearSelection resets both bounds and any in-progress drag
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selection.Clear()
	s.mu.Unlock()
}

//Conflict reports whether the selection's start instant collides with an
//existing annotation. A conflicting selection cannot be committed until the
//start time changes.
func (s *Session) Conflict() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflictLocked()
}

func (s *Session) conflictLocked() bool {
	lo, ok := s.selection.Low()
	if !ok {
		return false
	}
	return s.store.ConflictsAt(lo)
}

//State returns a consistent snapshot of the playhead, selection bounds and
//conflict flag
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		Current:  s.current,
		Duration: s.duration,
		SelStart: copyBound(s.selection.Start),
		SelEnd:   copyBound(s.selection.End),
		Conflict: s.conflictLocked(),
	}
}

//CommitAnnotation adds the selected range to the store with given tag.
//Refused (ok=false) when the selection is incomplete, the tag is blank, the
//start conflicts, or the store drops the record as a duplicate. On success
//the playhead advances just past the window and the selection resets.
func (s *Session) CommitAnnotation(tag, modifier, down string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi, ok := s.selection.Range()
	if !ok || strings.TrimSpace(tag) == "" || s.conflictLocked() {
		return "", false
	}

	id, ok := s.store.Add(lo, &hi, tag, modifier, down)
	if !ok {
		return "", false
	}

	delta := math.Max(s.stepMs/1000, 1/s.quant.FPS)
	s.seekLocked(hi + delta + 1e-4)
	s.selection.Clear()
	return id, true
}

//QuickAdd creates a point annotation with given tag at the playhead - the
//keyboard shortcut path. Duplicate (instant, tag) pairs are dropped by the
//store.
func (s *Session) QuickAdd(tag string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Add(s.current, nil, tag, "", "")
}

//CommitTimeEdit applies a user-entered time string to the playhead and
//returns the display string. An unparsable edit is discarded and the last
//known-good time is returned unchanged.
func (s *Session) CommitTimeEdit(str string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	parsed, ok := timecode.ParseClock(str)
	if !ok {
		return timecode.FormatClock(s.current)
	}
	rounded := math.Round(s.clampLocked(parsed)*100) / 100
	s.current = rounded
	return timecode.FormatClock(rounded)
}

func (s *Session) clampLocked(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0
	}
	if s.duration > 0 && t > s.duration {
		return s.duration
	}
	return t
}

func copyBound(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
