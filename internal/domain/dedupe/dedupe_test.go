package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/fantabrigade/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given an empty deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When a key is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "recompute:9/4")

			Convey("Then it was not pending before", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then recording it again coalesces", func() {
				So(d.SeenAndRecord(ctx, "recompute:9/4"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("Then a different episode is independent", func() {
				So(d.SeenAndRecord(ctx, "recompute:9/5"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})

			Convey("When the key is released", func() {
				d.Unrecord(ctx, "recompute:9/4")

				Convey("Then the next update schedules again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "recompute:9/4"), ShouldBeFalse)
				})
			})
		})

		Convey("When an unknown key is released", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		d.SeenAndRecord(ctx, "a")
		d.SeenAndRecord(ctx, "b")

		Convey("Then keys beyond the bound are never coalesced", func() {
			So(d.SeenAndRecord(ctx, "c"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 2)
		})

		Convey("Then tracked keys still coalesce", func() {
			So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
		})
	})

	Convey("Given many goroutines racing on the same keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		var fresh atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 16; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i)) {
						fresh.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then every key is claimed exactly once", func() {
			So(fresh.Load(), ShouldEqual, 50)
			So(d.Size(), ShouldEqual, 50)
		})
	})
}
