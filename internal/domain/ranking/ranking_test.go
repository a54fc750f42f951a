package ranking_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func userIDs(rows []model.LeaderboardRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	return ids
}

func TestParseSortKey(t *testing.T) {
	Convey("Given sort keys", t, func() {
		k, err := ranking.ParseSortKey("")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, ranking.ByWeek)

		k, err = ranking.ParseSortKey("Month_Points")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, ranking.ByMonth)

		_, err = ranking.ParseSortKey("points")
		So(errors.Is(err, ranking.ErrUnknownSortKey), ShouldBeTrue)
	})
}

func TestSort(t *testing.T) {
	Convey("Given leaderboard rows", t, func() {
		rows := []model.LeaderboardRow{
			{UserID: "carol", WeekPoints: 5, MonthPoints: 40, YearPoints: 100},
			{UserID: "alice", WeekPoints: 10, MonthPoints: 20, YearPoints: 300},
			{UserID: "bob", WeekPoints: 10, MonthPoints: 60, YearPoints: 200},
		}

		Convey("When sorting by weekly points", func() {
			sorted := ranking.Sort(rows, ranking.ByWeek)

			Convey("Then highest first with ties broken by user id", func() {
				So(userIDs(sorted), ShouldResemble, []string{"alice", "bob", "carol"})
			})

			Convey("And the input is untouched", func() {
				So(userIDs(rows), ShouldResemble, []string{"carol", "alice", "bob"})
			})

			Convey("And the leader is the first row", func() {
				leader, ok := ranking.Leader(sorted)
				So(ok, ShouldBeTrue)
				So(leader.UserID, ShouldEqual, "alice")
			})
		})

		Convey("When sorting by monthly and yearly points", func() {
			So(userIDs(ranking.Sort(rows, ranking.ByMonth)), ShouldResemble, []string{"bob", "carol", "alice"})
			So(userIDs(ranking.Sort(rows, ranking.ByYear)), ShouldResemble, []string{"alice", "bob", "carol"})
		})

		Convey("When sorting by user", func() {
			So(userIDs(ranking.Sort(rows, ranking.ByUser)), ShouldResemble, []string{"alice", "bob", "carol"})
		})

		Convey("When there are no rows", func() {
			_, ok := ranking.Leader(ranking.Sort(nil, ranking.ByWeek))
			So(ok, ShouldBeFalse)
		})
	})
}

func TestWindows(t *testing.T) {
	Convey("Given a Thursday afternoon", t, func() {
		now := time.Date(2026, 10, 15, 16, 30, 0, 0, time.UTC)
		w := ranking.Windows(now)

		Convey("Then the week starts on the previous Monday", func() {
			So(w.Week.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(w.Month.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(w.Year.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})
	})

	Convey("Given a Sunday", t, func() {
		w := ranking.Windows(time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC))
		So(w.Week.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
	})

	Convey("Given a Monday in a non-UTC zone", t, func() {
		// 01:00 Monday in UTC+2 is still Sunday in UTC.
		w := ranking.Windows(time.Date(2026, 10, 19, 1, 0, 0, 0, time.FixedZone("EET", 2*3600)))
		So(w.Week.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
	})
}
