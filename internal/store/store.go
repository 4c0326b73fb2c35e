// Package store is the durable project + segment store the Queue owns
// exclusively (spec §3 Ownership, §4.3 "Durable store"). It persists to a
// single JSON file with a temp-file-then-rename write, the same
// atomic-persistence idiom this codebase's on-disk statistics database has
// always used, generalised from append-only records to a mutable project
// plus an indexed, mutable segment set.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// ErrNoProject is returned by operations that require an imported project
// when none has been imported yet.
var ErrNoProject = fmt.Errorf("store: no project imported")

// ErrSegmentNotFound is returned when an operation names an unknown segment id.
var ErrSegmentNotFound = fmt.Errorf("store: segment not found")

type document struct {
	Project  *model.Project   `json:"project"`
	Segments []model.Segment `json:"segments"`
}

// Store is the single source of truth for project and segment state. No
// in-memory mirror elsewhere in the engine is authoritative (spec §5).
type Store struct {
	path string

	mu      sync.RWMutex
	doc     document
	byID    map[string]int // segment id -> index into doc.Segments, rebuilt on every load/mutation
	version uint64         // bumped on every successful mutation; used by the subscription layer's diff, never persisted
}

// Open loads path if it exists, or initialises an empty store file there.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.doc = document{}
		s.reindex()
		if err := s.saveLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("store: reading %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("store: parsing %s: %w", s.path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.reindex()
	return nil
}

func (s *Store) reindex() {
	s.byID = make(map[string]int, len(s.doc.Segments))
	for i, seg := range s.doc.Segments {
		s.byID[seg.ID] = i
	}
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshaling: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: renaming temp file: %w", err)
	}
	s.version++
	return nil
}

// Version returns the current mutation counter, for the subscription
// query-and-diff layer (spec §9) to detect whether a re-read is worthwhile.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ImportProject atomically wipes any existing project and writes a new one
// with its full segment set, translated count initialised to 0 (spec §4.3
// importProject).
func (s *Store) ImportProject(project model.Project, segments []model.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.Translated = 0
	project.TotalSegments = len(segments)

	s.doc = document{Project: &project, Segments: segments}
	s.reindex()
	return s.saveLocked()
}

// Wipe clears the store entirely. ImportProject and Restore do not call it;
// each replaces the whole store contents itself.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = document{}
	s.reindex()
	return s.saveLocked()
}

// Project returns a copy of the current project record.
func (s *Store) Project() (model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.Project == nil {
		return model.Project{}, ErrNoProject
	}
	return *s.doc.Project, nil
}

// Segments returns a copy of every segment, ordered by docPath then batch index.
func (s *Store) Segments() []model.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Segment, len(s.doc.Segments))
	copy(out, s.doc.Segments)
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocPath != out[j].DocPath {
			return out[i].DocPath < out[j].DocPath
		}
		return out[i].BatchIndex < out[j].BatchIndex
	})
	return out
}

// Segment returns a copy of one segment by id.
func (s *Store) Segment(id string) (model.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return model.Segment{}, false
	}
	return s.doc.Segments[idx], true
}

// ClaimNext atomically selects one segment — preferring PENDING over
// FAILED (spec §4.3 ordering/fairness) — marks it TRANSLATING, and returns
// it. Returns ok=false if none is available.
func (s *Store) ClaimNext() (model.Segment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, seg := range s.doc.Segments {
		if seg.Status == model.StatusPending {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, seg := range s.doc.Segments {
			if seg.Status == model.StatusFailed {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return model.Segment{}, false, nil
	}

	s.doc.Segments[idx].Status = model.StatusTranslating
	claimed := s.doc.Segments[idx]
	if err := s.saveLocked(); err != nil {
		return model.Segment{}, false, err
	}
	return claimed, true, nil
}

// CompleteSegment sets status TRANSLATED, stores the translated markup, and
// recomputes the project's translated count from the authoritative count
// of TRANSLATED segments (spec §4.3) — never by blind increment.
func (s *Store) CompleteSegment(id string, translated string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return ErrSegmentNotFound
	}
	s.doc.Segments[idx].Status = model.StatusTranslated
	s.doc.Segments[idx].Translated = translated
	s.doc.Segments[idx].Error = ""
	s.recomputeTranslatedLocked()
	return s.saveLocked()
}

// FailSegment applies spec §4.3's failSegment rule: a quota error reverts
// the segment to PENDING without consuming retry budget (pausing the engine
// is left to the caller); any other error increments retry count,
// transitioning to SKIPPED once the threshold is reached.
func (s *Store) FailSegment(id string, errText string, isQuota bool, maxRetries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return ErrSegmentNotFound
	}

	seg := &s.doc.Segments[idx]
	seg.Error = errText
	if isQuota {
		seg.Status = model.StatusPending
		return s.saveLocked()
	}

	seg.RetryCount++
	if seg.RetryCount >= maxRetries {
		seg.Status = model.StatusSkipped
	} else {
		seg.Status = model.StatusFailed
	}
	return s.saveLocked()
}

// RetrySkipped resets every SKIPPED segment to PENDING with retry count 0
// and no error (spec §4.3).
func (s *Store) RetrySkipped() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.doc.Segments {
		if s.doc.Segments[i].Status == model.StatusSkipped {
			s.doc.Segments[i].Status = model.StatusPending
			s.doc.Segments[i].RetryCount = 0
			s.doc.Segments[i].Error = ""
			changed = true
		}
	}
	if !changed {
		return nil
	}
	s.recomputeTranslatedLocked()
	return s.saveLocked()
}

// Stats returns the (total, translated, failed, skipped) counters (spec §4.3 stats()).
func (s *Store) Stats() model.ProjectStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.ProjectStats
	st.Total = len(s.doc.Segments)
	for _, seg := range s.doc.Segments {
		switch seg.Status {
		case model.StatusTranslated:
			st.Translated++
		case model.StatusFailed:
			st.Failed++
		case model.StatusSkipped:
			st.Skipped++
		}
	}
	return st
}

// AllTranslated reports whether every segment is TRANSLATED and there is
// at least one segment — the completion condition of spec §4.3.
func (s *Store) AllTranslated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.doc.Segments) == 0 {
		return false
	}
	for _, seg := range s.doc.Segments {
		if seg.Status != model.StatusTranslated {
			return false
		}
	}
	return true
}

// UpdateProjectTitle sets a translated title on the project record.
func (s *Store) UpdateProjectTitle(translatedTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Project == nil {
		return ErrNoProject
	}
	s.doc.Project.TranslatedTitle = translatedTitle
	return s.saveLocked()
}

func (s *Store) recomputeTranslatedLocked() {
	if s.doc.Project == nil {
		return
	}
	count := 0
	for _, seg := range s.doc.Segments {
		if seg.Status == model.StatusTranslated {
			count++
		}
	}
	s.doc.Project.Translated = count
}

// Snapshot returns a full copy of the project and segment set, for backup.
func (s *Store) Snapshot() (model.Project, []model.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.Project == nil {
		return model.Project{}, nil, ErrNoProject
	}
	segs := make([]model.Segment, len(s.doc.Segments))
	copy(segs, s.doc.Segments)
	return *s.doc.Project, segs, nil
}

// Restore atomically replaces the store contents (used by backup restore,
// spec §6), recomputing the translated count from segment statuses rather
// than trusting whatever was serialized.
func (s *Store) Restore(project model.Project, segments []model.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = document{Project: &project, Segments: segments}
	s.reindex()
	s.recomputeTranslatedLocked()
	return s.saveLocked()
}
