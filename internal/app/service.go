// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	recomputequeue "github.com/okian/muster/internal/adapters/mq/queue"
	workerpool "github.com/okian/muster/internal/adapters/mq/worker"
	repository "github.com/okian/muster/internal/adapters/repository"
	"github.com/okian/muster/internal/domain/alert"
	"github.com/okian/muster/internal/domain/attendance"
	"github.com/okian/muster/internal/domain/dedupe"
	"github.com/okian/muster/internal/domain/gate"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/internal/domain/types"
	"github.com/okian/muster/pkg/logger"
	"github.com/okian/muster/pkg/metrics"
)

// Service implements the API dependencies for the attendance system.
type Service struct {
	mu sync.RWMutex

	// Core components
	roster     *repository.MemStore
	board      *repository.TreapBoard
	ledger     dedupe.Ledger
	queue      recomputequeue.Queue
	gate       *gate.Gate
	calculator *attendance.Calculator
	detector   *alert.Detector
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	ledgerSize  int
	openBefore  time.Duration
	closeAfter  time.Duration
	grace       time.Duration
	geofence    float64
	lateWeight  float64

	latenessMinSample     int
	latenessWarnRatio     float64
	latenessCriticalCount int
	noShowWarnCount       int
	noShowCriticalCount   int

	// Latest alerts per member, refreshed by the worker pool.
	latestAlerts map[string][]model.PerformanceAlert

	// State
	started   bool
	startedAt time.Time
	stopCh    chan struct{}
	now       func() time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLedgerSize caps the check-in attempt ledger.
func WithLedgerSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.ledgerSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Useful in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCheckInWindow adjusts how far before and after call time the
// check-in window spans.
func WithCheckInWindow(openBefore, closeAfter time.Duration) Option {
	return func(s *Service) {
		if openBefore >= 0 && closeAfter >= 0 {
			s.openBefore = openBefore
			s.closeAfter = closeAfter
		}
	}
}

// WithGracePeriod sets the lateness grace period used by both the
// check-in gate and the stats calculator.
func WithGracePeriod(grace time.Duration) Option {
	return func(s *Service) {
		if grace >= 0 {
			s.grace = grace
		}
	}
}

// WithGeofenceRadius sets the accepted check-in radius in meters.
func WithGeofenceRadius(meters float64) Option {
	return func(s *Service) {
		if meters > 0 {
			s.geofence = meters
		}
	}
}

// WithLateWeight sets the reliability credit for a late check-in.
func WithLateWeight(weight float64) Option {
	return func(s *Service) {
		if weight >= 0 && weight <= 1 {
			s.lateWeight = weight
		}
	}
}

// WithLatenessRule tunes the lateness alert thresholds.
func WithLatenessRule(minSample int, warnRatio float64, criticalCount int) Option {
	return func(s *Service) {
		if minSample > 0 && warnRatio > 0 && criticalCount > 0 {
			s.latenessMinSample = minSample
			s.latenessWarnRatio = warnRatio
			s.latenessCriticalCount = criticalCount
		}
	}
}

// WithNoShowRule tunes the no-show alert thresholds.
func WithNoShowRule(warnCount, criticalCount int) Option {
	return func(s *Service) {
		if warnCount > 0 && criticalCount > 0 {
			s.noShowWarnCount = warnCount
			s.noShowCriticalCount = criticalCount
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:           runtime.NumCPU() * 2,
		queueSize:             10_000,
		ledgerSize:            50_000,
		openBefore:            60 * time.Minute,
		closeAfter:            30 * time.Minute,
		grace:                 5 * time.Minute,
		geofence:              200,
		lateWeight:            0.5,
		latenessMinSample:     3,
		latenessWarnRatio:     0.3,
		latenessCriticalCount: 5,
		noShowWarnCount:       2,
		noShowCriticalCount:   3,
		latestAlerts:          make(map[string][]model.PerformanceAlert),
		stopCh:                make(chan struct{}),
		now:                   time.Now,
		logger:                nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting attendance service...")

	// Initialize components
	s.roster = repository.NewMemStore()
	s.board = repository.NewTreapBoard(ctx)
	s.ledger = dedupe.NewInMemoryLedger(
		dedupe.WithMaxSize(s.ledgerSize),
	)
	s.queue = recomputequeue.NewInMemoryQueue(
		recomputequeue.WithCapacity(s.queueSize),
	)
	s.gate = gate.New(
		gate.WithWindow(s.openBefore, s.closeAfter),
		gate.WithGracePeriod(s.grace),
		gate.WithGeofenceRadius(s.geofence),
	)
	s.calculator = attendance.New(
		attendance.WithGracePeriod(s.grace),
		attendance.WithLateWeight(s.lateWeight),
	)
	s.detector = alert.New(
		alert.WithLatenessRule(s.latenessMinSample, s.latenessWarnRatio, s.latenessCriticalCount),
		alert.WithNoShowRule(s.noShowWarnCount, s.noShowCriticalCount),
	)

	// Create and start the recompute worker pool; the service itself is
	// the alert publisher.
	s.workerPool = workerpool.NewPool(
		s.workerCount, s.queue, s.roster, s.calculator, s.detector, s.board, s,
		workerpool.WithClock(s.now),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "attendance service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("ledgerSize", s.ledgerSize),
	)

	return nil
}

// Stop gracefully shuts down the service. The service lock is only held
// to flip the started flag and snapshot collaborators: workers draining
// their current job publish alerts through the same lock, so waiting on
// the pool while holding it would stall shutdown.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool := s.workerPool
	board := s.board
	queue := s.queue
	uptime := time.Since(s.startedAt)

	// Signal cleanup loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping attendance service...")

	// Stop worker pool
	if pool != nil {
		pool.Stop()
	}

	// Close board store
	if board != nil {
		_ = board.Close()
	}

	// Close queue
	if q, ok := queue.(*recomputequeue.InMemoryQueue); ok {
		_ = q.Close()
	}

	s.logger.Info(context.Background(), "attendance service stopped",
		logger.Duration("uptime", uptime))
}

// CheckIn evaluates and records a check-in attempt. The ledger holds the
// (event, member) pair for the duration of the attempt so concurrent
// submissions cannot double-record; it stays held after success since the
// pair is then permanently checked in.
func (s *Service) CheckIn(ctx context.Context, req types.CheckInSubmission) (types.CheckInReceipt, error) {
	key := dedupe.Key(req.EventID, req.MemberID)
	if s.ledger.SeenAndRecord(ctx, key) {
		metrics.RecordDuplicateAttempt()
		return types.CheckInReceipt{}, repository.ErrDuplicateCheckIn
	}

	ev, err := s.roster.Event(ctx, req.EventID)
	if err != nil {
		s.ledger.Unrecord(ctx, key)
		return types.CheckInReceipt{}, err
	}
	if _, err := s.roster.Member(ctx, req.MemberID); err != nil {
		s.ledger.Unrecord(ctx, key)
		return types.CheckInReceipt{}, err
	}

	now := s.now()
	pos := &model.Location{Latitude: req.Latitude, Longitude: req.Longitude}
	decision, err := s.gate.Evaluate(ev, now, pos, req.LateReason)
	if err != nil {
		s.ledger.Unrecord(ctx, key)
		metrics.RecordCheckInRejected(rejectionReason(err))
		return types.CheckInReceipt{}, err
	}
	metrics.ObserveGeofenceDistance(float64(decision.DistanceMeters))

	rec := model.CheckIn{
		ID:        uuid.NewString(),
		EventID:   req.EventID,
		Time:      now,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if decision.Late {
		rec.LateReason = req.LateReason
	}
	if err := s.roster.AppendCheckIn(ctx, req.MemberID, rec); err != nil {
		s.ledger.Unrecord(ctx, key)
		if errors.Is(err, repository.ErrDuplicateCheckIn) {
			metrics.RecordDuplicateAttempt()
		}
		return types.CheckInReceipt{}, err
	}

	metrics.RecordCheckInRecorded()
	if decision.Late {
		metrics.RecordLateCheckIn()
	}
	s.logger.Info(ctx, "check-in recorded",
		logger.String("eventID", req.EventID),
		logger.String("memberID", req.MemberID),
		logger.Bool("late", decision.Late),
		logger.Int("distanceM", decision.DistanceMeters),
	)

	s.enqueueRecompute(ctx, req.MemberID, "check-in")

	return types.CheckInReceipt{
		CheckInID:      rec.ID,
		Late:           decision.Late,
		DistanceMeters: decision.DistanceMeters,
	}, nil
}

// rejectionReason labels a gate violation for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, gate.ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, gate.ErrMissingReason):
		return "missing_reason"
	case errors.Is(err, gate.ErrOutsideGeofence):
		return "geofence"
	default:
		return "other"
	}
}

// enqueueRecompute pushes a refresh job for the member; a full queue only
// defers the board update, it never fails the caller's request.
func (s *Service) enqueueRecompute(ctx context.Context, memberID, trigger string) {
	job := model.Recompute{MemberID: memberID, Trigger: trigger, EnqueuedAt: s.now()}
	if !s.queue.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "recompute queue full; board refresh deferred",
			logger.String("memberID", memberID),
			logger.String("trigger", trigger),
		)
	}
}

// AddEvent stores an event and schedules recomputes for everyone assigned,
// since a new past event changes their attendance denominator.
func (s *Service) AddEvent(ctx context.Context, ev model.ServiceEvent) error {
	if err := s.roster.PutEvent(ctx, ev); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(ev.Assignments))
	for _, a := range ev.Assignments {
		for _, id := range []string{a.MemberID, a.TraineeID} {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			s.enqueueRecompute(ctx, id, "roster")
		}
	}
	return nil
}

// Event returns a stored event by id.
func (s *Service) Event(ctx context.Context, eventID string) (model.ServiceEvent, error) {
	return s.roster.Event(ctx, eventID)
}

// Events lists all stored events.
func (s *Service) Events(ctx context.Context) ([]model.ServiceEvent, error) {
	return s.roster.Events(ctx)
}

// AddMember stores a member and schedules an initial recompute so any
// imported check-in history lands on the board.
func (s *Service) AddMember(ctx context.Context, m model.TeamMember) error {
	if err := s.roster.PutMember(ctx, m); err != nil {
		return err
	}
	s.enqueueRecompute(ctx, m.ID, "roster")
	return nil
}

// Member returns a stored member by id.
func (s *Service) Member(ctx context.Context, memberID string) (model.TeamMember, error) {
	return s.roster.Member(ctx, memberID)
}

// Attendance computes fresh stats and alerts for a member. Derived state
// is never read from a cache here; the board may lag, this view may not.
func (s *Service) Attendance(ctx context.Context, memberID string) (types.AttendanceView, error) {
	member, err := s.roster.Member(ctx, memberID)
	if err != nil {
		return types.AttendanceView{}, err
	}
	events, err := s.roster.Events(ctx)
	if err != nil {
		return types.AttendanceView{}, err
	}

	stats := s.calculator.Compute(member, events, s.now())
	alerts := s.detector.Detect(stats)
	metrics.RecordStatsComputation()

	view := types.AttendanceView{
		MemberID: memberID,
		Stats: types.StatsView{
			TotalAssignments: stats.TotalAssignments,
			OnTime:           stats.OnTime,
			Early:            stats.Early,
			Late:             stats.Late,
			NoShow:           stats.NoShow,
			OnTimePercentage: stats.OnTimePercentage,
			ReliabilityScore: stats.ReliabilityScore,
		},
		Alerts: make([]types.AlertView, 0, len(alerts)),
	}
	for _, a := range alerts {
		view.Alerts = append(view.Alerts, types.AlertView{
			Type:    a.Type,
			Level:   a.Level,
			Message: a.Message,
		})
	}
	return view, nil
}

// TopN returns the top N reliability board entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.BoardEntry, error) {
	entries, err := s.board.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	// Convert to API format
	apiEntries := make([]types.BoardEntry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = types.BoardEntry{
			Rank:             entry.Rank,
			MemberID:         entry.MemberID,
			ReliabilityScore: entry.Score,
			OnTimePercentage: entry.OnTimePercentage,
			TotalAssignments: entry.TotalAssignments,
		}
	}

	return apiEntries, nil
}

// Rank returns the board entry for a given member id.
func (s *Service) Rank(ctx context.Context, memberID string) (types.BoardEntry, error) {
	entry, err := s.board.Rank(ctx, memberID)
	if err != nil {
		return types.BoardEntry{}, err
	}

	return types.BoardEntry{
		Rank:             entry.Rank,
		MemberID:         entry.MemberID,
		ReliabilityScore: entry.Score,
		OnTimePercentage: entry.OnTimePercentage,
		TotalAssignments: entry.TotalAssignments,
	}, nil
}

// PublishAlerts receives freshly detected alerts from the worker pool and
// keeps the latest set per member.
func (s *Service) PublishAlerts(ctx context.Context, memberID string, stats model.AttendanceStats, alerts []model.PerformanceAlert) {
	s.mu.Lock()
	if len(alerts) == 0 {
		delete(s.latestAlerts, memberID)
	} else {
		s.latestAlerts[memberID] = alerts
	}
	s.mu.Unlock()

	for _, a := range alerts {
		if a.Level == model.AlertLevelCritical {
			s.logger.Warn(ctx, "critical performance alert",
				logger.String("memberID", memberID),
				logger.String("type", a.Type),
				logger.String("message", a.Message),
			)
		}
	}
}

// LatestAlerts returns the most recently published alerts for a member.
func (s *Service) LatestAlerts(memberID string) []model.PerformanceAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestAlerts[memberID]
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"ledgerSize":  s.ledgerSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		events, members, checkIns := s.roster.Counts(ctx)

		stats["queueLength"] = queueLen
		stats["events"] = events
		stats["members"] = members
		stats["checkIns"] = checkIns
		stats["boardMembers"] = s.board.Count(ctx)
		stats["membersWithAlerts"] = len(s.latestAlerts)

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the attempt ledger.
func (s *Service) Size() int64 {
	if s.ledger == nil {
		return 0
	}
	return s.ledger.Size()
}
