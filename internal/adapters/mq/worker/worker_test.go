package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/muster/internal/adapters/mq/worker"
	"github.com/okian/muster/internal/domain/attendance"
	"github.com/okian/muster/internal/domain/model"
	logging "github.com/okian/muster/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

// Mock implementations for testing.
type mockQueue struct {
	jobChan chan worker.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		jobChan: make(chan worker.Job, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan worker.Job {
	return mq.jobChan
}

func (mq *mockQueue) addJob(job worker.Job) {
	mq.jobChan <- job
}

func (mq *mockQueue) close() {
	close(mq.jobChan)
}

type mockRoster struct {
	mu      sync.RWMutex
	members map[string]model.TeamMember
	events  []model.ServiceEvent
	lookup  error
}

func newMockRoster() *mockRoster {
	return &mockRoster{members: make(map[string]model.TeamMember)}
}

func (mr *mockRoster) Member(_ context.Context, id string) (model.TeamMember, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	if mr.lookup != nil {
		return model.TeamMember{}, mr.lookup
	}
	m, ok := mr.members[id]
	if !ok {
		return model.TeamMember{}, errors.New("member not found")
	}
	return m, nil
}

func (mr *mockRoster) Events(_ context.Context) ([]model.ServiceEvent, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.events, nil
}

func (mr *mockRoster) put(m model.TeamMember) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.members[m.ID] = m
}

type boardUpdate struct {
	memberID  string
	score     float64
	onTimePct float64
	total     int
}

type mockBoard struct {
	mu      sync.Mutex
	updates []boardUpdate
	fail    error
}

func (mb *mockBoard) SetScore(_ context.Context, memberID string, score, onTimePct float64, totalAssignments int) (bool, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.fail != nil {
		return false, mb.fail
	}
	mb.updates = append(mb.updates, boardUpdate{memberID, score, onTimePct, totalAssignments})
	return true, nil
}

func (mb *mockBoard) snapshot() []boardUpdate {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]boardUpdate, len(mb.updates))
	copy(out, mb.updates)
	return out
}

type published struct {
	memberID string
	alerts   []model.PerformanceAlert
}

type mockPublisher struct {
	mu   sync.Mutex
	seen []published
}

func (mp *mockPublisher) PublishAlerts(_ context.Context, memberID string, _ model.AttendanceStats, alerts []model.PerformanceAlert) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.seen = append(mp.seen, published{memberID, alerts})
}

func (mp *mockPublisher) snapshot() []published {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]published, len(mp.seen))
	copy(out, mp.seen)
	return out
}

// mockDetector fires a fixed alert whenever any event was late.
type mockDetector struct{}

func (mockDetector) Detect(stats model.AttendanceStats) []model.PerformanceAlert {
	if stats.Late > 0 {
		return []model.PerformanceAlert{{
			Type:    model.AlertTypeLateness,
			Level:   model.AlertLevelWarning,
			Message: "late check-ins detected",
		}}
	}
	return nil
}

func waitFor(condition func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

func TestRecomputeWorker_Process(t *testing.T) {
	Convey("Given a worker wired to a roster with history", t, func() {
		now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
		call := now.Add(-24 * time.Hour)

		q := newMockQueue()
		roster := newMockRoster()
		board := &mockBoard{}
		pub := &mockPublisher{}

		roster.events = []model.ServiceEvent{
			{
				ID:          "svc-1",
				Date:        call,
				CallTime:    call,
				Assignments: []model.Assignment{{Role: "crew", MemberID: "mem-1"}},
			},
			{
				ID:          "svc-2",
				Date:        call.Add(2 * time.Hour),
				CallTime:    call.Add(2 * time.Hour),
				Assignments: []model.Assignment{{Role: "crew", MemberID: "mem-1"}},
			},
		}
		roster.put(model.TeamMember{
			ID: "mem-1",
			CheckIns: []model.CheckIn{
				{EventID: "svc-1", Time: call},
				{EventID: "svc-2", Time: call.Add(2*time.Hour + 15*time.Minute)},
			},
		})

		w := worker.NewRecomputeWorker(q, roster, attendance.New(), mockDetector{}, board, pub,
			worker.WithClock(func() time.Time { return now }),
			worker.WithName("test-worker"),
		)

		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)

		Reset(func() {
			cancel()
		})

		Convey("When a recompute job arrives", func() {
			q.addJob(worker.Job{MemberID: "mem-1", Trigger: "check-in", EnqueuedAt: time.Now()})

			Convey("Then the board should receive the refreshed score", func() {
				So(waitFor(func() bool { return len(board.snapshot()) == 1 }), ShouldBeTrue)

				update := board.snapshot()[0]
				So(update.memberID, ShouldEqual, "mem-1")
				So(update.total, ShouldEqual, 2)
				// one on time, one late with half credit
				So(update.score, ShouldAlmostEqual, 75.0, 0.001)
				So(update.onTimePct, ShouldAlmostEqual, 50.0, 0.001)
			})

			Convey("Then the detected alerts should be published", func() {
				So(waitFor(func() bool { return len(pub.snapshot()) == 1 }), ShouldBeTrue)

				got := pub.snapshot()[0]
				So(got.memberID, ShouldEqual, "mem-1")
				So(got.alerts, ShouldHaveLength, 1)
				So(got.alerts[0].Type, ShouldEqual, model.AlertTypeLateness)
			})
		})

		Convey("When the member lookup fails", func() {
			q.addJob(worker.Job{MemberID: "missing", Trigger: "manual"})
			q.addJob(worker.Job{MemberID: "mem-1", Trigger: "manual"})

			Convey("Then the failure should not stall later jobs", func() {
				So(waitFor(func() bool { return len(board.snapshot()) == 1 }), ShouldBeTrue)
				So(board.snapshot()[0].memberID, ShouldEqual, "mem-1")
			})
		})

		Convey("When the queue closes", func() {
			q.close()

			Convey("Then the worker should shut down cleanly", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}

func TestRecomputeWorker_BoardFailure(t *testing.T) {
	Convey("Given a worker whose board rejects updates", t, func() {
		now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

		q := newMockQueue()
		roster := newMockRoster()
		roster.put(model.TeamMember{ID: "mem-1"})
		board := &mockBoard{fail: errors.New("board unavailable")}
		pub := &mockPublisher{}

		w := worker.NewRecomputeWorker(q, roster, attendance.New(), mockDetector{}, board, pub,
			worker.WithClock(func() time.Time { return now }),
		)

		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)

		Reset(func() {
			cancel()
		})

		Convey("When a job is processed", func() {
			q.addJob(worker.Job{MemberID: "mem-1", Trigger: "manual"})

			Convey("Then no alerts should be published for the failed update", func() {
				time.Sleep(100 * time.Millisecond)
				So(pub.snapshot(), ShouldBeEmpty)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers over one queue", t, func() {
		now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
		call := now.Add(-24 * time.Hour)

		q := newMockQueue()
		roster := newMockRoster()
		board := &mockBoard{}
		pub := &mockPublisher{}

		roster.events = []model.ServiceEvent{{
			ID:          "svc-1",
			Date:        call,
			CallTime:    call,
			Assignments: []model.Assignment{{Role: "crew", MemberID: "mem-1"}, {Role: "crew", MemberID: "mem-2"}},
		}}
		roster.put(model.TeamMember{ID: "mem-1", CheckIns: []model.CheckIn{{EventID: "svc-1", Time: call}}})
		roster.put(model.TeamMember{ID: "mem-2"})

		pool := worker.NewPool(3, q, roster, attendance.New(), mockDetector{}, board, pub,
			worker.WithClock(func() time.Time { return now }),
		)

		ctx, cancel := context.WithCancel(context.Background())
		pool.Start(ctx)

		Reset(func() {
			cancel()
		})

		Convey("When jobs for several members arrive", func() {
			q.addJob(worker.Job{MemberID: "mem-1", Trigger: "roster"})
			q.addJob(worker.Job{MemberID: "mem-2", Trigger: "roster"})

			Convey("Then every member should reach the board", func() {
				So(waitFor(func() bool { return len(board.snapshot()) == 2 }), ShouldBeTrue)

				seen := map[string]float64{}
				for _, u := range board.snapshot() {
					seen[u.memberID] = u.score
				}
				So(seen["mem-1"], ShouldAlmostEqual, 100.0, 0.001)
				So(seen["mem-2"], ShouldAlmostEqual, 0.0, 0.001)
			})
		})

		Convey("When the pool is stopped", func() {
			stopped := make(chan struct{})
			go func() {
				pool.Stop()
				close(stopped)
			}()

			Convey("Then it should return promptly", func() {
				select {
				case <-stopped:
				case <-time.After(2 * time.Second):
					So("pool.Stop timed out", ShouldBeEmpty)
				}
			})
		})
	})
}
