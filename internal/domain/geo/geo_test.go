package geo_test

import (
	"testing"

	"github.com/okian/muster/internal/domain/geo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistance(t *testing.T) {
	Convey("Given the haversine distance function", t, func() {
		Convey("When both coordinates are identical", func() {
			Convey("Then the distance should be zero", func() {
				So(geo.Distance(40.7128, -74.0060, 40.7128, -74.0060), ShouldEqual, 0)
				So(geo.Distance(0, 0, 0, 0), ShouldEqual, 0)
			})
		})

		Convey("When the points are one degree of latitude apart", func() {
			d := geo.Distance(40, -74, 41, -74)

			Convey("Then the distance should be roughly 111km", func() {
				So(d, ShouldAlmostEqual, 111_195, 100)
			})
		})

		Convey("When the points are a short walk apart", func() {
			// ~0.0018 degrees of latitude is about 200m
			d := geo.Distance(40.7128, -74.0060, 40.7146, -74.0060)

			Convey("Then the distance should be near the geofence scale", func() {
				So(d, ShouldBeGreaterThan, 190)
				So(d, ShouldBeLessThan, 210)
			})
		})

		Convey("When the arguments are swapped", func() {
			forward := geo.Distance(35.6892, 51.3890, 40.7128, -74.0060)
			backward := geo.Distance(40.7128, -74.0060, 35.6892, 51.3890)

			Convey("Then the distance should be symmetric", func() {
				So(forward, ShouldAlmostEqual, backward, 1e-6)
			})
		})

		Convey("When the points are on opposite sides of the antimeridian", func() {
			d := geo.Distance(0, 179.9, 0, -179.9)

			Convey("Then the distance should take the short way around", func() {
				So(d, ShouldBeLessThan, 30_000)
				So(d, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When crossing continents", func() {
			// Tehran to New York is roughly 9,860km
			d := geo.Distance(35.6892, 51.3890, 40.7128, -74.0060)

			Convey("Then the distance should be in the expected range", func() {
				So(d, ShouldBeGreaterThan, 9_700_000)
				So(d, ShouldBeLessThan, 10_000_000)
			})
		})
	})
}
