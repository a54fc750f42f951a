package draw_test

import (
	"testing"

	"github.com/okian/acerace/internal/domain/draw"
	"github.com/okian/acerace/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProfile(t *testing.T) {
	Convey("Given draw positions", t, func() {
		cases := []struct {
			pos     int
			hand    model.Handedness
			surface model.Surface
		}{
			{1, model.HandLeft, model.SurfaceGrass},
			{2, model.HandRight, model.SurfaceHard},
			{3, model.HandLeft, model.SurfaceClay},
			{6, model.HandRight, model.SurfaceClay},
			{64, model.HandRight, model.SurfaceGrass},
		}

		Convey("Then handedness follows parity and surface follows position mod 3", func() {
			for _, c := range cases {
				p := draw.Profile(model.DrawEntry{Position: c.pos})
				So(p.Handedness, ShouldEqual, c.hand)
				So(p.Surface, ShouldEqual, c.surface)
				So(p.Nationality, ShouldEqual, draw.DefaultNationality)
				So(p.Age, ShouldEqual, draw.DefaultAge)
			}
		})
	})
}

func TestEnrichAllAndSplit(t *testing.T) {
	Convey("Given a small draw", t, func() {
		entries := []model.DrawEntry{
			{PlayerID: "a", DrawHalf: model.HalfTop, Position: 1},
			{PlayerID: "b", DrawHalf: model.HalfBottom, Position: 2},
			{PlayerID: "c", DrawHalf: model.HalfTop, Position: 3},
			{PlayerID: "x", DrawHalf: "Middle", Position: 4},
		}

		Convey("Then EnrichAll keeps order and entry data", func() {
			out := draw.EnrichAll(entries)
			So(out, ShouldHaveLength, 4)
			So(out[1].PlayerID, ShouldEqual, "b")
			So(out[1].Handedness, ShouldEqual, model.HandRight)
		})

		Convey("Then Split separates the halves", func() {
			top, bottom := draw.Split(entries)
			So(top, ShouldHaveLength, 2)
			So(bottom, ShouldHaveLength, 1)
			So(top[1].PlayerID, ShouldEqual, "c")
		})
	})
}
