package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/acerace/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduper(t *testing.T) {
	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When an id is recorded", func() {
			So(d.SeenAndRecord(ctx, "r1"), ShouldBeFalse)

			Convey("Then it is reported as seen afterwards", func() {
				So(d.SeenAndRecord(ctx, "r1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And Unrecord lets it through again", func() {
				d.Unrecord(ctx, "r1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "r1"), ShouldBeFalse)
			})
		})

		Convey("When more ids than the bound are recorded", func() {
			for _, id := range []string{"r1", "r2", "r3", "r4"} {
				d.SeenAndRecord(ctx, id)
			}

			Convey("Then the oldest is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "r4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "r2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "r1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			So(func() { d.Unrecord(ctx, "nope") }, ShouldNotPanic)
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("r%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
		So(d.SeenAndRecord(ctx, "r0"), ShouldBeTrue)
	})
}

func TestDeduperConcurrent(t *testing.T) {
	Convey("Given many goroutines racing on the same id", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "same") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(fresh.Load(), ShouldEqual, 1)
		})
	})
}
