package attendance_test

import (
	"testing"
	"time"

	"github.com/okian/muster/internal/domain/attendance"
	"github.com/okian/muster/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func pastEvent(id string, call time.Time, memberID string) model.ServiceEvent {
	return model.ServiceEvent{
		ID:          id,
		Date:        call,
		CallTime:    call,
		Assignments: []model.Assignment{{Role: "crew", MemberID: memberID}},
	}
}

func TestCalculatorCompute(t *testing.T) {
	Convey("Given a calculator with default thresholds", t, func() {
		calc := attendance.New()
		now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
		call := now.Add(-48 * time.Hour)

		Convey("When the member has a mixed history", func() {
			events := []model.ServiceEvent{
				pastEvent("svc-early", call, "mem-1"),
				pastEvent("svc-ontime", call.Add(3*time.Hour), "mem-1"),
				pastEvent("svc-late", call.Add(6*time.Hour), "mem-1"),
				pastEvent("svc-missed", call.Add(9*time.Hour), "mem-1"),
			}
			member := model.TeamMember{
				ID: "mem-1",
				CheckIns: []model.CheckIn{
					{EventID: "svc-early", Time: call.Add(-10 * time.Minute)},
					{EventID: "svc-ontime", Time: call.Add(3*time.Hour + 2*time.Minute)},
					{EventID: "svc-late", Time: call.Add(6*time.Hour + 12*time.Minute)},
				},
			}

			stats := calc.Compute(member, events, now)

			Convey("Then the classification counts should be exact", func() {
				So(stats.TotalAssignments, ShouldEqual, 4)
				So(stats.Early, ShouldEqual, 1)
				So(stats.OnTime, ShouldEqual, 1)
				So(stats.Late, ShouldEqual, 1)
				So(stats.NoShow, ShouldEqual, 1)
				So(stats.Attended(), ShouldEqual, 3)
			})

			Convey("Then the on-time percentage should count early as on time", func() {
				So(stats.OnTimePercentage, ShouldAlmostEqual, 200.0/3.0, 0.001)
			})

			Convey("Then the reliability score should give lates half credit", func() {
				So(stats.ReliabilityScore, ShouldAlmostEqual, 2.5/4.0*100, 0.001)
			})
		})

		Convey("When classifying at the grace boundaries", func() {
			events := []model.ServiceEvent{
				pastEvent("svc-a", call, "mem-1"),
				pastEvent("svc-b", call.Add(3*time.Hour), "mem-1"),
				pastEvent("svc-c", call.Add(6*time.Hour), "mem-1"),
			}
			member := model.TeamMember{
				ID: "mem-1",
				CheckIns: []model.CheckIn{
					// exactly 5 minutes early: on time
					{EventID: "svc-a", Time: call.Add(-5 * time.Minute)},
					// exactly 5 minutes late: on time
					{EventID: "svc-b", Time: call.Add(3*time.Hour + 5*time.Minute)},
					// one second past the band: late
					{EventID: "svc-c", Time: call.Add(6*time.Hour + 5*time.Minute + time.Second)},
				},
			}

			stats := calc.Compute(member, events, now)

			Convey("Then the band should be inclusive on both sides", func() {
				So(stats.OnTime, ShouldEqual, 2)
				So(stats.Early, ShouldEqual, 0)
				So(stats.Late, ShouldEqual, 1)
			})
		})

		Convey("When the member has no history", func() {
			stats := calc.Compute(model.TeamMember{ID: "mem-1"}, nil, now)

			Convey("Then both scores should be a perfect 100", func() {
				So(stats.TotalAssignments, ShouldEqual, 0)
				So(stats.OnTimePercentage, ShouldEqual, 100.0)
				So(stats.ReliabilityScore, ShouldEqual, 100.0)
			})
		})

		Convey("When every attended event was late", func() {
			events := []model.ServiceEvent{
				pastEvent("svc-a", call, "mem-1"),
				pastEvent("svc-b", call.Add(3*time.Hour), "mem-1"),
			}
			member := model.TeamMember{
				ID: "mem-1",
				CheckIns: []model.CheckIn{
					{EventID: "svc-a", Time: call.Add(15 * time.Minute)},
					{EventID: "svc-b", Time: call.Add(3*time.Hour + 20*time.Minute)},
				},
			}

			stats := calc.Compute(member, events, now)

			Convey("Then the on-time percentage should be zero", func() {
				So(stats.OnTimePercentage, ShouldEqual, 0.0)
			})

			Convey("Then the reliability score should be the late credit only", func() {
				So(stats.ReliabilityScore, ShouldAlmostEqual, 50.0, 0.001)
			})
		})

		Convey("When events are not yet over", func() {
			future := pastEvent("svc-future", now.Add(1*time.Hour), "mem-1")
			ongoing := model.ServiceEvent{
				ID:          "svc-ongoing",
				Date:        now.Add(-1 * time.Hour),
				EndDate:     now.Add(1 * time.Hour),
				CallTime:    now.Add(-1 * time.Hour),
				Assignments: []model.Assignment{{Role: "crew", MemberID: "mem-1"}},
			}

			stats := calc.Compute(model.TeamMember{ID: "mem-1"}, []model.ServiceEvent{future, ongoing}, now)

			Convey("Then they should not count against the member", func() {
				So(stats.TotalAssignments, ShouldEqual, 0)
				So(stats.NoShow, ShouldEqual, 0)
			})
		})

		Convey("When the member is not assigned to an event", func() {
			events := []model.ServiceEvent{pastEvent("svc-a", call, "someone-else")}
			stats := calc.Compute(model.TeamMember{ID: "mem-1"}, events, now)

			Convey("Then the event should be ignored", func() {
				So(stats.TotalAssignments, ShouldEqual, 0)
			})
		})

		Convey("When the member is assigned as a trainee", func() {
			events := []model.ServiceEvent{{
				ID:          "svc-a",
				Date:        call,
				CallTime:    call,
				Assignments: []model.Assignment{{Role: "crew", MemberID: "someone-else", TraineeID: "mem-1"}},
			}}
			stats := calc.Compute(model.TeamMember{ID: "mem-1"}, events, now)

			Convey("Then the assignment should count", func() {
				So(stats.TotalAssignments, ShouldEqual, 1)
				So(stats.NoShow, ShouldEqual, 1)
			})
		})

		Convey("When timestamps arrive in mixed shapes", func() {
			events := []model.ServiceEvent{{
				ID:          "svc-a",
				Date:        call.Format(time.RFC3339),
				CallTime:    call.Format(time.RFC3339),
				Assignments: []model.Assignment{{Role: "crew", MemberID: "mem-1"}},
			}}
			member := model.TeamMember{
				ID: "mem-1",
				CheckIns: []model.CheckIn{
					{EventID: "svc-a", Time: call.Add(time.Minute).Format(time.RFC3339)},
				},
			}

			stats := calc.Compute(member, events, now)

			Convey("Then normalization should make them comparable", func() {
				So(stats.OnTime, ShouldEqual, 1)
			})
		})

		Convey("When a check-in timestamp is garbage", func() {
			events := []model.ServiceEvent{pastEvent("svc-a", call, "mem-1")}
			member := model.TeamMember{
				ID:       "mem-1",
				CheckIns: []model.CheckIn{{EventID: "svc-a", Time: "not a date"}},
			}

			stats := calc.Compute(member, events, now)

			Convey("Then it should degrade to an early epoch check-in, never panic", func() {
				So(stats.TotalAssignments, ShouldEqual, 1)
				So(stats.Early, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a calculator with a custom late weight", t, func() {
		calc := attendance.New(attendance.WithLateWeight(0))
		now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
		call := now.Add(-48 * time.Hour)

		Convey("When every attended event was late", func() {
			events := []model.ServiceEvent{pastEvent("svc-a", call, "mem-1")}
			member := model.TeamMember{
				ID:       "mem-1",
				CheckIns: []model.CheckIn{{EventID: "svc-a", Time: call.Add(30 * time.Minute)}},
			}

			stats := calc.Compute(member, events, now)

			Convey("Then lates should earn nothing", func() {
				So(stats.ReliabilityScore, ShouldEqual, 0.0)
			})
		})
	})
}
