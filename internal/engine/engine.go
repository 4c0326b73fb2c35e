// Package engine wires the Reader, Segmenter, durable Store, Scheduler,
// Translator Client, and Reassembler into the single coordinating surface
// spec §6 calls Engine, and serves the engine-to-UI subscription contract
// over that same store. Grounded on internal/translator/coordinator.go's
// constructor-wiring style (conditional sub-component construction, zap
// logging conventions), simplified to this project's narrower pipeline —
// spec.md's core has no format-fix, glossary, or post-processing stages,
// so those sections of the coordinator are not carried.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/epub-translate/internal/backup"
	"github.com/nerdneilsfield/epub-translate/internal/config"
	"github.com/nerdneilsfield/epub-translate/internal/epub"
	"github.com/nerdneilsfield/epub-translate/internal/logger"
	"github.com/nerdneilsfield/epub-translate/internal/model"
	"github.com/nerdneilsfield/epub-translate/internal/reassemble"
	"github.com/nerdneilsfield/epub-translate/internal/scheduler"
	"github.com/nerdneilsfield/epub-translate/internal/segment"
	"github.com/nerdneilsfield/epub-translate/internal/store"
	"github.com/nerdneilsfield/epub-translate/internal/translator"
)

// ErrNoProject mirrors store.ErrNoProject for callers that only import
// this package.
var ErrNoProject = store.ErrNoProject

// Engine is the concrete implementation of spec §6's Engine interface.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
	ring   *logger.Ring

	store      *store.Store
	translator *translator.Client
	sched      *scheduler.Scheduler

	mu        sync.Mutex
	analyzing atomic.Bool
}

// New opens the durable store at cfg.StorePath and builds every
// sub-component around it.
func New(cfg *config.Config, log *zap.Logger, ring *logger.Ring) (*Engine, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("engine: opening store: %w", err)
	}

	tr := translator.New(cfg, log)
	sched := scheduler.New(st, tr, log, cfg.WorkerConcurrency, cfg.MaxRetries)

	return &Engine{
		cfg:        cfg,
		logger:     log,
		ring:       ring,
		store:      st,
		translator: tr,
		sched:      sched,
	}, nil
}

// State reports the engine's coarse state for the UI contract, overlaying
// the scheduler's machine with an ANALYZING phase the scheduler itself has
// no notion of — import/segmentation happens before a project exists, so
// it can't be a scheduler state transition.
func (e *Engine) State() model.EngineState {
	if e.analyzing.Load() {
		return model.StateAnalyzing
	}
	return e.sched.State()
}

// ImportProject implements spec §4.1's importProject: read the archive,
// segment every content document, and write a fresh project + segment set
// to the durable store, wiping whatever was there before. Per spec §4.3's
// `ANY -> IDLE` transition, the scheduler is reset before the store write so
// a project that previously ran to COMPLETED/PAUSED/QUOTA_PAUSED/ERROR can
// be started again for the newly imported book.
func (e *Engine) ImportProject(ctx context.Context, epubBytes []byte) (*model.Project, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.analyzing.Store(true)
	defer e.analyzing.Store(false)

	read, err := epub.Read(epubBytes)
	if err != nil {
		return nil, err
	}

	var segments []model.Segment
	for _, doc := range read.ContentDocs {
		markup := read.Archive.Files[doc.ArchivePath]
		docSegments, err := segment.Segment(doc.ArchivePath, string(markup), model.SchemaV2, e.cfg.BatchCharLimit)
		if err != nil {
			return nil, fmt.Errorf("engine: segmenting %s: %w", doc.ArchivePath, err)
		}
		segments = append(segments, docSegments...)
	}

	project := model.Project{
		Title:          read.Title,
		Author:         read.Author,
		CoverBytes:     read.CoverBytes,
		ArchiveBytes:   epubBytes,
		ContentDocs:    read.ContentDocs,
		SchemaVersion:  model.SchemaV2,
		SourceLang:     e.cfg.SourceLang,
		TargetLang:     e.cfg.TargetLang,
		ExportSettings: model.ExportSettings(e.cfg.ExportSettings),
		CreatedAt:      time.Now(),
	}

	e.sched.Reset()
	if err := e.store.ImportProject(project, segments); err != nil {
		return nil, err
	}

	saved, err := e.store.Project()
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Start begins translation (spec §4.3 start()).
func (e *Engine) Start(ctx context.Context) error {
	if _, err := e.store.Project(); err != nil {
		return err
	}
	return e.sched.Start(ctx)
}

// Pause implements spec §4.3 pause().
func (e *Engine) Pause() error {
	return e.sched.Pause()
}

// Resume implements spec §4.3 resume().
func (e *Engine) Resume() error {
	return e.sched.Resume()
}

// Stats returns (total, translated, failed) segment counts (spec §4.3 stats()).
func (e *Engine) Stats() (total, translated, failed int) {
	st := e.store.Stats()
	return st.Total, st.Translated, st.Failed
}

// ProjectStats returns the full stats struct the subscription layer observes.
func (e *Engine) ProjectStats() model.ProjectStats {
	return e.store.Stats()
}

// RetrySkipped resets every SKIPPED segment to PENDING (spec §4.3).
func (e *Engine) RetrySkipped() error {
	return e.store.RetrySkipped()
}

// Backup serializes the current project and segments into a .mtj bundle
// (spec §6).
func (e *Engine) Backup() ([]byte, error) {
	project, segments, err := e.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return backup.Create(project, segments)
}

// Restore replaces the durable store's contents from a .mtj bundle (spec §6).
// Per spec §4.3's `ANY -> IDLE` transition, the scheduler is forced back to
// IDLE (draining any in-flight workers first) before the store is wiped and
// repopulated.
func (e *Engine) Restore(ctx context.Context, bundle []byte) error {
	project, segments, err := backup.Restore(bundle)
	if err != nil {
		return err
	}
	e.sched.Reset()
	return e.store.Restore(project, segments)
}

// Export re-walks every content document, substituting translated markup,
// replacing the cover, and rewriting OPF metadata, producing a new EPUB
// archive (spec §4.5).
func (e *Engine) Export(ctx context.Context) ([]byte, error) {
	project, segments, err := e.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return reassemble.ApplyArchive(project, segments, e.logger)
}
