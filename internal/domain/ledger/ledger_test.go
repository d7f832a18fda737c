package ledger_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fanscore/internal/domain/ledger"
	"github.com/okian/fanscore/internal/domain/model"
)

func testRoster() []model.Participant {
	return []model.Participant{
		{ID: 1, Name: "ALICE", Active: true},
		{ID: 2, Name: "BOB", Active: true},
		{ID: 3, Name: "CARLA", Active: true},
		{ID: 4, Name: "DANA", Active: false},
	}
}

func TestDistributeNamedParticipants(t *testing.T) {
	Convey("Given a distributor and a classified event", t, func() {
		fixed := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
		d := ledger.New(ledger.WithClock(func() time.Time { return fixed }))

		Convey("When a single participant gets 10 USD", func() {
			dist := d.Distribute("ev-1", []string{"ALICE"}, 10, testRoster())

			Convey("Then ALICE gets one 10-point award and nothing is pooled", func() {
				So(dist.Awards, ShouldHaveLength, 1)
				So(dist.Awards[0].Participant, ShouldEqual, "ALICE")
				So(dist.Awards[0].Points, ShouldEqual, 10)
				So(dist.Awards[0].EventID, ShouldEqual, "ev-1")
				So(dist.Awards[0].CreatedAt, ShouldEqual, fixed)
				So(dist.Pooled, ShouldEqual, 0)
			})
		})

		Convey("When two participants share 7 USD", func() {
			dist := d.Distribute("ev-2", []string{"ALICE", "BOB"}, 7, testRoster())

			Convey("Then each gets the floored share", func() {
				So(dist.Awards, ShouldHaveLength, 2)
				So(dist.Awards[0].Points, ShouldEqual, 3)
				So(dist.Awards[1].Points, ShouldEqual, 3)
			})

			Convey("Then the summed deltas equal the floored total", func() {
				var sum int64
				for _, a := range dist.Awards {
					sum += a.Points
				}
				So(sum, ShouldEqual, int64(7/2)*2)
			})
		})

		Convey("When the amount is below one point per head", func() {
			dist := d.Distribute("ev-3", []string{"ALICE", "BOB", "CARLA"}, 2, testRoster())

			Convey("Then every named participant still gets a zero-point row", func() {
				So(dist.Awards, ShouldHaveLength, 3)
				for _, a := range dist.Awards {
					So(a.Points, ShouldEqual, 0)
				}
				So(dist.Pooled, ShouldEqual, 0)
			})
		})
	})
}

func TestDistributeUnresolved(t *testing.T) {
	Convey("Given a distributor and an unresolved event", t, func() {
		d := ledger.New()
		roster := testRoster() // 3 active

		Convey("When the amount is below the active roster size", func() {
			dist := d.Distribute("ev-4", nil, 2, roster)

			Convey("Then the whole amount goes to the pool", func() {
				So(dist.Awards, ShouldBeEmpty)
				So(dist.Pooled, ShouldEqual, 2)
			})
		})

		Convey("When the amount covers the active roster", func() {
			dist := d.Distribute("ev-5", nil, 9, roster)

			Convey("Then every active participant gets the floored per-head share", func() {
				So(dist.Awards, ShouldHaveLength, 3)
				for _, a := range dist.Awards {
					So(a.Points, ShouldEqual, 3)
				}
				So(dist.Pooled, ShouldEqual, 0)
			})

			Convey("Then inactive participants are excluded", func() {
				for _, a := range dist.Awards {
					So(a.Participant, ShouldNotEqual, "DANA")
				}
			})
		})

		Convey("When the amount equals the active roster size", func() {
			dist := d.Distribute("ev-6", nil, 3, roster)

			Convey("Then it splits at one point each", func() {
				So(dist.Awards, ShouldHaveLength, 3)
				So(dist.Awards[0].Points, ShouldEqual, 1)
				So(dist.Pooled, ShouldEqual, 0)
			})
		})

		Convey("When nobody is active", func() {
			inactive := []model.Participant{{ID: 1, Name: "ALICE", Active: false}}
			dist := d.Distribute("ev-7", nil, 50, inactive)

			Convey("Then the amount is pooled", func() {
				So(dist.Awards, ShouldBeEmpty)
				So(dist.Pooled, ShouldEqual, 50)
			})
		})
	})
}

func TestDistributeEdgeCases(t *testing.T) {
	Convey("Given a distributor", t, func() {
		d := ledger.New()

		Convey("When the amount is zero", func() {
			dist := d.Distribute("ev-8", []string{"ALICE"}, 0, testRoster())

			Convey("Then nothing is awarded or pooled", func() {
				So(dist.Awards, ShouldBeEmpty)
				So(dist.Pooled, ShouldEqual, 0)
			})
		})

		Convey("When the amount is negative", func() {
			dist := d.Distribute("ev-9", nil, -5, testRoster())

			Convey("Then nothing is awarded or pooled", func() {
				So(dist.Awards, ShouldBeEmpty)
				So(dist.Pooled, ShouldEqual, 0)
			})
		})

		Convey("When a fractional amount is split", func() {
			dist := d.Distribute("ev-10", []string{"ALICE"}, 4.99, testRoster())

			Convey("Then the award is floored to whole points", func() {
				So(dist.Awards, ShouldHaveLength, 1)
				So(dist.Awards[0].Points, ShouldEqual, 4)
			})
		})

		Convey("When descriptions are produced", func() {
			named := d.Distribute("ev-11", []string{"ALICE", "BOB"}, 10, testRoster())
			pooled := d.Distribute("ev-12", nil, 1, testRoster())

			Convey("Then they name the rule that fired", func() {
				So(named.Description, ShouldContainSubstring, "ALICE, BOB")
				So(pooled.Description, ShouldContainSubstring, "pool")
			})
		})
	})
}
