package annotation

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/timecode"
)

//Record is one tagged time window (or point) on the video timeline.
//StartKey and EndKey are frame-aligned keys produced by the store's
//quantizer and are never mutated after creation - changing the timing of an
//annotation means creating a new record. EndKey is nil for point
//annotations.
type Record struct {
	ID       string   `json:"id"`
	StartKey float64  `json:"startKey"`
	EndKey   *float64 `json:"endKey,omitempty"`
	TagName  string   `json:"tagName"`
	Modifier string   `json:"modifier"`
	Down     string   `json:"down"`
}

//StartClock renders the record's start as "MM:SS.HH" for display
func (r Record) StartClock() string {
	return timecode.FormatClock(r.StartKey)
}

//EndClock renders the record's end as "MM:SS.HH", or "" for a point record
func (r Record) EndClock() string {
	if r.EndKey == nil {
		return ""
	}
	return timecode.FormatClock(*r.EndKey)
}

//normalizeTag is the comparison form of a tag name - trimmed and lowercased.
//Storage keeps the original casing.
func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

//Store is the ordered collection of annotation records. Uniqueness is scoped
//to (StartKey, normalized TagName): several distinct tags may share a start
//instant, but the same tag may appear only once per instant. Iteration order
//is ascending StartKey with ties broken by insertion order.
type Store struct {
	mu        sync.Mutex
	quant     timecode.Quantizer
	records   []*Record
	listeners []func([]Record)
}

//NewStore returns an empty store keyed by given quantizer
func NewStore(quant timecode.Quantizer) *Store {
	return &Store{quant: quant}
}

//Quantizer returns the quantizer every time entering this store goes through
func (s *Store) Quantizer() timecode.Quantizer {
	return s.quant
}

//Subscribe registers a listener that receives the full snapshot after every
//mutation. Listeners are invoked synchronously on the mutating call.
func (s *Store) Subscribe(fn func([]Record)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

//notifyLocked captures the snapshot and listener set under the lock. The
//returned function performs the notification and must be called after the
//lock is released, so listeners may call back into the store and a panicking
//listener cannot leave the mutex in a broken state.
func (s *Store) notifyLocked() func() {
	snap := s.snapshotLocked()
	listeners := make([]func([]Record), len(s.listeners))
	copy(listeners, s.listeners)
	return func() {
		for _, fn := range listeners {
			fn(snap)
		}
	}
}

//Add quantizes given times and inserts a new record. An end time is only
//kept if finite. Returns the new record's id, or ok=false if a record with
//the same (start key, normalized tag) already exists - duplicates are
//dropped silently by design, callers that want to warn the user should
//consult ConflictsAt first.
func (s *Store) Add(start float64, end *float64, tag, modifier, down string) (string, bool) {
	s.mu.Lock()

	startKey := s.quant.Key(start)
	var endKey *float64
	if end != nil && !math.IsNaN(*end) && !math.IsInf(*end, 0) {
		k := s.quant.Key(*end)
		endKey = &k
	}

	tagName := strings.TrimSpace(tag)
	if tagName != "" && s.hasTagAtLocked(startKey, tagName) {
		s.mu.Unlock()
		return "", false
	}

	rec := &Record{
		ID:       uuid.NewString(),
		StartKey: startKey,
		EndKey:   endKey,
		TagName:  tagName,
		Modifier: strings.TrimSpace(modifier),
		Down:     strings.TrimSpace(down),
	}
	s.records = append(s.records, rec)
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].StartKey < s.records[j].StartKey
	})

	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
	return rec.ID, true
}

//UpdateTagName renames a record in place. Returns false without mutating if
//the record does not exist or if the rename would collide with another
//record at the same start key.
func (s *Store) UpdateTagName(id, name string) bool {
	s.mu.Lock()

	target := s.findLocked(id)
	if target == nil {
		s.mu.Unlock()
		return false
	}
	for _, r := range s.records {
		if r.ID != id && r.StartKey == target.StartKey && normalizeTag(r.TagName) == normalizeTag(name) {
			s.mu.Unlock()
			return false
		}
	}
	target.TagName = name

	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
	return true
}

//UpdateModifier replaces a record's modifier. Unknown ids are a no-op.
func (s *Store) UpdateModifier(id, value string) {
	s.mu.Lock()
	r := s.findLocked(id)
	if r == nil {
		s.mu.Unlock()
		return
	}
	r.Modifier = value
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

//UpdateDown replaces a record's down value. The field is free text and not
//validated. Unknown ids are a no-op.
func (s *Store) UpdateDown(id, value string) {
	s.mu.Lock()
	r := s.findLocked(id)
	if r == nil {
		s.mu.Unlock()
		return
	}
	r.Down = value
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

//Remove deletes one record. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.RemoveMany(map[string]bool{id: true})
}

//RemoveMany deletes every record whose id is in given set
func (s *Store) RemoveMany(ids map[string]bool) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()

	kept := s.records[:0]
	removed := false
	for _, r := range s.records {
		if ids[r.ID] {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	if !removed {
		s.mu.Unlock()
		return
	}
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

//Clear empties the store. Used when the video source or schema is cleared.
func (s *Store) Clear() {
	s.mu.Lock()
	if len(s.records) == 0 {
		s.mu.Unlock()
		return
	}
	s.records = nil
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

//Snapshot returns a read-only copy of the records in ascending start order
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []Record {
	snap := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		rec := *r
		if r.EndKey != nil {
			k := *r.EndKey
			rec.EndKey = &k
		}
		snap = append(snap, rec)
	}
	return snap
}

//Len returns the number of records currently held
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) findLocked(id string) *Record {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) hasTagAtLocked(startKey float64, tag string) bool {
	for _, r := range s.records {
		if r.StartKey == startKey && normalizeTag(r.TagName) == normalizeTag(tag) {
			return true
		}
	}
	return false
}
