package alert_test

import (
	"testing"

	"github.com/okian/muster/internal/domain/alert"
	"github.com/okian/muster/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDetectorLateness(t *testing.T) {
	Convey("Given a detector with default thresholds", t, func() {
		d := alert.New()

		Convey("When the late ratio exceeds the warning threshold", func() {
			stats := model.AttendanceStats{OnTime: 6, Late: 4}
			alerts := d.Detect(stats)

			Convey("Then a lateness warning should fire", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Type, ShouldEqual, model.AlertTypeLateness)
				So(alerts[0].Level, ShouldEqual, model.AlertLevelWarning)
			})
		})

		Convey("When the late count passes the critical bar", func() {
			stats := model.AttendanceStats{OnTime: 4, Late: 6}
			alerts := d.Detect(stats)

			Convey("Then the lateness alert should be critical", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Level, ShouldEqual, model.AlertLevelCritical)
			})
		})

		Convey("When the late count sits exactly at the critical bar", func() {
			stats := model.AttendanceStats{OnTime: 4, Late: 5}
			alerts := d.Detect(stats)

			Convey("Then it should stay a warning", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Level, ShouldEqual, model.AlertLevelWarning)
			})
		})

		Convey("When the late ratio sits exactly at the threshold", func() {
			stats := model.AttendanceStats{OnTime: 7, Late: 3}
			alerts := d.Detect(stats)

			Convey("Then no alert should fire", func() {
				So(alerts, ShouldBeEmpty)
			})
		})

		Convey("When the sample is too small", func() {
			stats := model.AttendanceStats{Late: 2}
			alerts := d.Detect(stats)

			Convey("Then no lateness alert should fire", func() {
				So(alerts, ShouldBeEmpty)
			})
		})
	})
}

func TestDetectorNoShows(t *testing.T) {
	Convey("Given a detector with default thresholds", t, func() {
		d := alert.New()

		Convey("When the no-show count reaches the warning bar", func() {
			stats := model.AttendanceStats{OnTime: 5, NoShow: 2}
			alerts := d.Detect(stats)

			Convey("Then a no-show warning should fire", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Type, ShouldEqual, model.AlertTypeNoShows)
				So(alerts[0].Level, ShouldEqual, model.AlertLevelWarning)
			})
		})

		Convey("When the no-show count passes the critical bar", func() {
			stats := model.AttendanceStats{OnTime: 5, NoShow: 4}
			alerts := d.Detect(stats)

			Convey("Then the no-show alert should be critical", func() {
				So(alerts[0].Level, ShouldEqual, model.AlertLevelCritical)
			})
		})

		Convey("When the no-show count sits exactly at the critical bar", func() {
			stats := model.AttendanceStats{OnTime: 5, NoShow: 3}
			alerts := d.Detect(stats)

			Convey("Then it should stay a warning", func() {
				So(alerts[0].Level, ShouldEqual, model.AlertLevelWarning)
			})
		})

		Convey("When there is a single no-show", func() {
			stats := model.AttendanceStats{OnTime: 5, NoShow: 1}
			alerts := d.Detect(stats)

			Convey("Then no alert should fire", func() {
				So(alerts, ShouldBeEmpty)
			})
		})
	})
}

func TestDetectorOrdering(t *testing.T) {
	Convey("Given stats that trip both rules", t, func() {
		d := alert.New()
		stats := model.AttendanceStats{OnTime: 2, Late: 6, NoShow: 4}

		Convey("When detecting", func() {
			alerts := d.Detect(stats)

			Convey("Then lateness should come before no-shows", func() {
				So(alerts, ShouldHaveLength, 2)
				So(alerts[0].Type, ShouldEqual, model.AlertTypeLateness)
				So(alerts[1].Type, ShouldEqual, model.AlertTypeNoShows)
			})

			Convey("Then both should be critical", func() {
				So(alerts[0].Level, ShouldEqual, model.AlertLevelCritical)
				So(alerts[1].Level, ShouldEqual, model.AlertLevelCritical)
			})
		})
	})

	Convey("Given empty stats", t, func() {
		d := alert.New()

		Convey("When detecting", func() {
			Convey("Then nothing should fire", func() {
				So(d.Detect(model.AttendanceStats{}), ShouldBeEmpty)
			})
		})
	})
}

func TestDetectorOptions(t *testing.T) {
	Convey("Given a detector with custom thresholds", t, func() {
		d := alert.New(
			alert.WithLatenessRule(1, 0.5, 2),
			alert.WithNoShowRule(1, 1),
		)

		Convey("When one of two check-ins was late", func() {
			alerts := d.Detect(model.AttendanceStats{OnTime: 1, Late: 1})

			Convey("Then the tightened rule should not fire at the ratio boundary", func() {
				So(alerts, ShouldBeEmpty)
			})
		})

		Convey("When three of four check-ins were late", func() {
			alerts := d.Detect(model.AttendanceStats{OnTime: 1, Late: 3})

			Convey("Then the tightened rule should escalate to critical", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Level, ShouldEqual, model.AlertLevelCritical)
			})
		})

		Convey("When a single no-show occurs", func() {
			alerts := d.Detect(model.AttendanceStats{OnTime: 3, NoShow: 1})

			Convey("Then the tightened no-show rule should warn", func() {
				So(alerts, ShouldHaveLength, 1)
				So(alerts[0].Type, ShouldEqual, model.AlertTypeNoShows)
				So(alerts[0].Level, ShouldEqual, model.AlertLevelWarning)
			})
		})

		Convey("When options carry invalid values", func() {
			unchanged := alert.New(
				alert.WithLatenessRule(0, 1.5, -1),
				alert.WithNoShowRule(0, 0),
			)

			Convey("Then defaults should be preserved", func() {
				So(unchanged.Detect(model.AttendanceStats{OnTime: 5, NoShow: 1}), ShouldBeEmpty)
			})
		})
	})
}
