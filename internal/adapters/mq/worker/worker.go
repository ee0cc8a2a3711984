// Package worker defines the pool that refreshes derived attendance
// state: per-member stats, the reliability board, and alerts.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/muster/internal/adapters/mq/queue"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/pkg/logger"
	"github.com/okian/muster/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = model.Recompute

// Roster is the read side of the store a recompute needs.
type Roster interface {
	Member(ctx context.Context, id string) (model.TeamMember, error)
	Events(ctx context.Context) ([]model.ServiceEvent, error)
}

// Calculator derives attendance statistics for a member.
type Calculator interface {
	Compute(member model.TeamMember, events []model.ServiceEvent, now time.Time) model.AttendanceStats
}

// Detector evaluates alert rules over computed statistics.
type Detector interface {
	Detect(stats model.AttendanceStats) []model.PerformanceAlert
}

// Board receives refreshed reliability scores.
type Board interface {
	SetScore(ctx context.Context, memberID string, score, onTimePct float64, totalAssignments int) (bool, error)
}

// Publisher receives freshly detected alerts for a member.
type Publisher interface {
	PublishAlerts(ctx context.Context, memberID string, stats model.AttendanceStats, alerts []model.PerformanceAlert)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes recompute jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// RecomputeWorker implements Worker.
type RecomputeWorker struct {
	queue      Queue
	roster     Roster
	calculator Calculator
	detector   Detector
	board      Board
	publisher  Publisher
	now        func() time.Time
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRecomputeWorker creates a worker with configuration options.
func NewRecomputeWorker(q Queue, roster Roster, calc Calculator, det Detector, board Board, pub Publisher, opts ...Option) *RecomputeWorker {
	w := &RecomputeWorker{
		queue:      q,
		roster:     roster,
		calculator: calc,
		detector:   det,
		board:      board,
		publisher:  pub,
		now:        time.Now,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *RecomputeWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "recompute failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *RecomputeWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process refreshes one member's derived attendance state.
func (w *RecomputeWorker) process(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	member, err := w.roster.Member(ctx, job.MemberID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "member_lookup")
		return fmt.Errorf("load member %s: %w", job.MemberID, err)
	}
	events, err := w.roster.Events(ctx)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "events_lookup")
		return fmt.Errorf("load events: %w", err)
	}

	computeStart := time.Now()
	stats := w.calculator.Compute(member, events, w.now())
	metrics.RecordComputeLatency(float64(time.Since(computeStart).Milliseconds()))
	metrics.RecordStatsComputation()

	if _, err := w.board.SetScore(ctx, member.ID, stats.ReliabilityScore, stats.OnTimePercentage, stats.TotalAssignments); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "board_update")
		return fmt.Errorf("board update for %s: %w", member.ID, err)
	}

	alerts := w.detector.Detect(stats)
	for _, a := range alerts {
		metrics.RecordAlertFired(a.Type, a.Level)
	}
	if w.publisher != nil {
		w.publisher.PublishAlerts(ctx, member.ID, stats, alerts)
	}

	w.logger.Debug(ctx, "recomputed attendance",
		logger.String("memberID", member.ID),
		logger.String("trigger", job.Trigger),
		logger.Float64("reliability", stats.ReliabilityScore),
		logger.Int("alerts", len(alerts)),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*RecomputeWorker
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a worker pool of the given size.
func NewPool(workerCount int, q Queue, roster Roster, calc Calculator, det Detector, board Board, pub Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*RecomputeWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewRecomputeWorker(q, roster, calc, det, board, pub, workerOpts...)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerIdleCount(0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		select {
		case <-w.shutdown:
			// Already signalled
		default:
			close(w.shutdown)
		}
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}

var _ Queue = (*queue.InMemoryQueue)(nil)
