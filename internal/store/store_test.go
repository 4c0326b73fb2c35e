package store

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return s
}

func importN(t *testing.T, s *Store, n int) {
	t.Helper()
	segs := make([]model.Segment, n)
	for i := range segs {
		segs[i] = model.Segment{
			ID:      fmt.Sprintf("doc.xhtml::%d", i),
			DocPath: "doc.xhtml",
			BatchIndex: i,
			OriginalHTML: fmt.Sprintf("<p>%d</p>", i),
			Status:  model.StatusPending,
		}
	}
	require.NoError(t, s.ImportProject(model.Project{Title: "T"}, segs))
}

func TestStore_ClaimNextNeverDoubleAssigns(t *testing.T) {
	s := newTestStore(t)
	importN(t, s, 100)

	var wg sync.WaitGroup
	seen := make(map[string]bool)
	var mu sync.Mutex

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				seg, ok, err := s.ClaimNext()
				if err != nil || !ok {
					return
				}
				mu.Lock()
				if seen[seg.ID] {
					t.Errorf("segment %s claimed twice", seg.ID)
				}
				seen[seg.ID] = true
				mu.Unlock()

				time.Sleep(time.Duration(rand.Intn(2)) * time.Millisecond)
				_ = s.CompleteSegment(seg.ID, seg.OriginalHTML)
			}
		}()
	}
	wg.Wait()

	assert.True(t, s.AllTranslated())
	stats := s.Stats()
	assert.Equal(t, 100, stats.Total)
	assert.Equal(t, 100, stats.Translated)
}

func TestStore_FailSegment_QuotaRevertsToPendingWithoutRetryCost(t *testing.T) {
	s := newTestStore(t)
	importN(t, s, 3)

	seg, ok, err := s.ClaimNext()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.FailSegment(seg.ID, "quota exceeded", true, 3))

	got, ok := s.Segment(seg.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 0, got.RetryCount)
}

func TestStore_FailSegment_RetryThresholdSkips(t *testing.T) {
	s := newTestStore(t)
	importN(t, s, 1)

	seg, ok, err := s.ClaimNext()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.FailSegment(seg.ID, "timeout", false, 3))
	got, _ := s.Segment(seg.ID)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)

	// Re-claim and fail twice more to hit the threshold.
	for i := 0; i < 2; i++ {
		claimed, ok, err := s.ClaimNext()
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, s.FailSegment(claimed.ID, "timeout", false, 3))
	}

	got, _ = s.Segment(seg.ID)
	assert.Equal(t, model.StatusSkipped, got.Status)
	assert.Equal(t, 3, got.RetryCount)
}

func TestStore_RetrySkipped(t *testing.T) {
	s := newTestStore(t)
	importN(t, s, 1)

	seg, _, _ := s.ClaimNext()
	for i := 0; i < 3; i++ {
		s.FailSegment(seg.ID, "timeout", false, 3)
		seg, _, _ = s.ClaimNext()
	}
	got, _ := s.Segment("doc.xhtml::0")
	require.Equal(t, model.StatusSkipped, got.Status)

	require.NoError(t, s.RetrySkipped())
	got, _ = s.Segment("doc.xhtml::0")
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 0, got.RetryCount)
}
