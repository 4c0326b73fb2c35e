// Package scheduler is the Queue + Scheduler component (spec §4.3): a
// cooperative, bounded worker pool driving claimNext/translate/complete
// over the durable store, coordinating pause/resume, quota-triggered
// global pause, and completion detection. Grounded on this codebase's
// existing translation service's semaphore-and-WaitGroup worker-pool shape
// (pkg/translation/service.go), restructured around a pull-based
// claimNext loop per spec §9's explicit design note, rather than that
// service's fan-out-over-a-fixed-chunk-slice model.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/epub-translate/internal/model"
	"github.com/nerdneilsfield/epub-translate/internal/translator"
)

// DefaultWorkerCount is the bounded pool size spec §4.3 fixes at 5.
const DefaultWorkerCount = 5

// Store is the narrow seam onto the durable store the scheduler drives.
type Store interface {
	ClaimNext() (model.Segment, bool, error)
	CompleteSegment(id string, translated string) error
	FailSegment(id string, errText string, isQuota bool, maxRetries int) error
	AllTranslated() bool
}

// Translator is the narrow seam onto the Translator Client.
type Translator interface {
	Translate(ctx context.Context, markup string) (string, error)
}

// Scheduler owns the engine state variable and the worker pool. Per spec
// §9's "Global state" note, it is an explicit handle constructed by the
// caller (the engine), not a process-wide singleton.
type Scheduler struct {
	store       Store
	translator  Translator
	logger      *zap.Logger
	workerCount int
	maxRetries  int
	idlePoll    time.Duration

	mu     sync.Mutex
	state  model.EngineState
	runCtx context.Context
	wg     sync.WaitGroup
}

// New builds a Scheduler in the IDLE state.
func New(store Store, tr Translator, logger *zap.Logger, workerCount, maxRetries int) *Scheduler {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &Scheduler{
		store:       store,
		translator:  tr,
		logger:      logger,
		workerCount: workerCount,
		maxRetries:  maxRetries,
		idlePoll:    50 * time.Millisecond,
		state:       model.StateIdle,
	}
}

// State returns the current engine state.
func (s *Scheduler) State() model.EngineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setStateLocked(st model.EngineState) {
	s.state = st
}

// Start transitions IDLE -> TRANSLATING and launches the worker pool
// (spec §4.3 start()).
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != model.StateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.setStateLocked(model.StateTranslating)
	s.runCtx = ctx
	s.mu.Unlock()

	s.spawnWorkers(ctx)
	return nil
}

// Resume transitions PAUSED/QUOTA_PAUSED -> TRANSLATING and relaunches the
// worker pool — every prior worker already exited on observing the engine
// leave TRANSLATING, per spec §4.3's cancellation note (spec §9).
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	if s.state != model.StatePaused && s.state != model.StateQuotaPaused {
		s.mu.Unlock()
		return ErrNotPaused
	}
	s.setStateLocked(model.StateTranslating)
	ctx := s.runCtx
	s.mu.Unlock()

	s.spawnWorkers(ctx)
	return nil
}

// Pause transitions TRANSLATING -> PAUSED (spec §4.3 pause()). It does not
// cancel in-flight translations; each worker notices the transition the
// next time its loop iterates and exits on its own.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.StateTranslating {
		return ErrNotTranslating
	}
	s.setStateLocked(model.StatePaused)
	return nil
}

// Wait blocks until every currently running worker has exited. Useful for
// tests and for a clean shutdown after pause.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Reset forces the scheduler back to IDLE from any state (spec §4.3's
// `ANY -> IDLE` transition on importing a new project or restoring a
// backup, both of which wipe the durable store first). Workers already
// running notice the state change cooperatively, same as Pause, so Reset
// blocks until they've all exited before returning — the caller's store
// wipe must not race a worker still mid claimNext/translate/complete.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.setStateLocked(model.StateIdle)
	s.runCtx = nil
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) spawnWorkers(ctx context.Context) {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.workerLoop(ctx)
	}
}

// workerLoop implements spec §4.3's claimNext -> translate -> complete/fail
// cycle. An empty claim is not an exit condition by itself — the worker
// polls at idlePoll and keeps looping as long as the engine stays
// TRANSLATING, so a worker that outpaces the others doesn't tear itself
// down while work is still in flight elsewhere. It exits only once ctx is
// done or the engine state has left TRANSLATING (spec §4.3 concurrency
// model, §9 "Coroutine worker loop").
func (s *Scheduler) workerLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if s.State() != model.StateTranslating {
			return
		}

		seg, ok, err := s.store.ClaimNext()
		if err != nil {
			s.logger.Error("claimNext failed", zap.Error(err))
			return
		}
		if !ok {
			s.checkCompletion()
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.idlePoll):
			}
			if s.State() != model.StateTranslating {
				return
			}
			continue
		}

		translated, err := s.translator.Translate(ctx, seg.OriginalHTML)
		if err != nil {
			if translator.IsQuota(err) {
				s.handleQuotaFailure(seg.ID, err)
				continue
			}
			if failErr := s.store.FailSegment(seg.ID, err.Error(), false, s.maxRetries); failErr != nil {
				s.logger.Error("failSegment failed", zap.Error(failErr))
			}
			continue
		}

		if err := s.store.CompleteSegment(seg.ID, translated); err != nil {
			s.logger.Error("completeSegment failed", zap.Error(err))
			continue
		}
		s.checkCompletion()
	}
}

// handleQuotaFailure implements spec §4.3's quota handling: the offending
// segment is reverted to PENDING without consuming retry budget, and the
// first worker to observe a quota failure flips the engine to QUOTA_PAUSED.
func (s *Scheduler) handleQuotaFailure(segmentID string, cause error) {
	if err := s.store.FailSegment(segmentID, cause.Error(), true, s.maxRetries); err != nil {
		s.logger.Error("failSegment (quota) failed", zap.Error(err))
	}

	s.mu.Lock()
	if s.state == model.StateTranslating {
		s.setStateLocked(model.StateQuotaPaused)
		s.logger.Warn("quota error observed, pausing engine", zap.String("segmentId", segmentID))
	}
	s.mu.Unlock()
}

// checkCompletion implements spec §4.3's completion rule: once every
// segment is TRANSLATED and there is at least one, the engine becomes
// COMPLETED.
func (s *Scheduler) checkCompletion() {
	if !s.store.AllTranslated() {
		return
	}
	s.mu.Lock()
	if s.state == model.StateTranslating {
		s.setStateLocked(model.StateCompleted)
	}
	s.mu.Unlock()
}
