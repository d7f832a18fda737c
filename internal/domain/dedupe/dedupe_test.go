package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/fanscore/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenAndRecord(t *testing.T) {
	Convey("Given a seen cache", t, func() {
		ctx := context.Background()
		d := dedupe.New()

		Convey("When an id arrives for the first time", func() {
			seen := d.SeenAndRecord(ctx, "ev-1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same id arrives twice", func() {
			d.SeenAndRecord(ctx, "ev-1")
			seen := d.SeenAndRecord(ctx, "ev-1")

			Convey("Then the second arrival is a duplicate", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When distinct ids arrive", func() {
			d.SeenAndRecord(ctx, "ev-1")
			d.SeenAndRecord(ctx, "ev-2")
			d.SeenAndRecord(ctx, "ev-3")

			Convey("Then all are recorded", func() {
				So(d.Size(), ShouldEqual, 3)
			})
		})
	})
}

func TestUnrecord(t *testing.T) {
	Convey("Given a cache with a recorded id", t, func() {
		ctx := context.Background()
		d := dedupe.New()
		d.SeenAndRecord(ctx, "ev-1")

		Convey("When the id is unrecorded", func() {
			d.Unrecord(ctx, "ev-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "ev-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.Unrecord(ctx, "ev-404")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestEviction(t *testing.T) {
	Convey("Given a cache with capacity three", t, func() {
		ctx := context.Background()
		d := dedupe.New(dedupe.WithCapacity(3))

		Convey("When a fourth id arrives", func() {
			d.SeenAndRecord(ctx, "ev-1")
			d.SeenAndRecord(ctx, "ev-2")
			d.SeenAndRecord(ctx, "ev-3")
			d.SeenAndRecord(ctx, "ev-4")

			Convey("Then the oldest id is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "ev-1"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "ev-4"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded cache", t, func() {
		ctx := context.Background()
		d := dedupe.New(dedupe.WithCapacity(0))

		Convey("When many ids arrive", func() {
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("ev-%d", i))
			}

			Convey("Then none are evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
			})
		})
	})
}

func TestConcurrentAccess(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		ctx := context.Background()
		d := dedupe.New()

		Convey("When many goroutines record the same ids", func() {
			const goroutines = 8
			const ids = 200

			var firsts sync.Map
			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < ids; i++ {
						id := fmt.Sprintf("ev-%d", i)
						if !d.SeenAndRecord(ctx, id) {
							if _, loaded := firsts.LoadOrStore(id, true); loaded {
								t.Errorf("id %s recorded twice", id)
							}
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is recorded exactly once", func() {
				So(d.Size(), ShouldEqual, ids)
			})
		})
	})
}
