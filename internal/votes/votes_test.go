package votes_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/internal/votes"
	"github.com/tipio/tipio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newVotes(t *testing.T) *votes.Store {
	t.Helper()
	return votes.New(store.NewFileStore(filepath.Join(t.TempDir(), "votes.json")))
}

func TestRecord(t *testing.T) {
	Convey("Given an event with no votes", t, func() {
		ctx := context.Background()
		v := newVotes(t)

		Convey("A first vote counts once and reports as new", func() {
			totals, first, err := v.Record(ctx, "ev-1", "u1", model.VoteHome)
			So(err, ShouldBeNil)
			So(first, ShouldBeTrue)
			So(totals.Totals["1"], ShouldEqual, 1)
			So(totals.VoterCount, ShouldEqual, 1)
			So(totals.Percentages["1"], ShouldEqual, 100)
		})

		Convey("A re-vote swaps the tally instead of double counting", func() {
			_, _, err := v.Record(ctx, "ev-1", "u1", model.VoteHome)
			So(err, ShouldBeNil)
			totals, first, err := v.Record(ctx, "ev-1", "u1", model.VoteAway)
			So(err, ShouldBeNil)
			So(first, ShouldBeFalse)
			So(totals.Totals["1"], ShouldEqual, 0)
			So(totals.Totals["2"], ShouldEqual, 1)
			So(totals.VoterCount, ShouldEqual, 1)

			Convey("Swapping back restores the original single vote", func() {
				totals, first, err := v.Record(ctx, "ev-1", "u1", model.VoteHome)
				So(err, ShouldBeNil)
				So(first, ShouldBeFalse)
				So(totals.Totals["1"], ShouldEqual, 1)
				So(totals.Totals["draw"], ShouldEqual, 0)
				So(totals.Totals["2"], ShouldEqual, 0)
				So(totals.VoterCount, ShouldEqual, 1)
				So(totals.Percentages["1"], ShouldEqual, 100)
			})
		})

		Convey("An invalid choice is rejected", func() {
			_, _, err := v.Record(ctx, "ev-1", "u1", model.VoteChoice("maybe"))
			So(errors.Is(err, votes.ErrInvalidChoice), ShouldBeTrue)
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given votes from several users", t, func() {
		ctx := context.Background()
		v := newVotes(t)

		for _, vote := range []struct {
			user   string
			choice model.VoteChoice
		}{
			{"u1", model.VoteHome},
			{"u2", model.VoteHome},
			{"u3", model.VoteHome},
			{"u4", model.VoteHome},
			{"u5", model.VoteHome},
			{"u6", model.VoteDraw},
			{"u7", model.VoteAway},
			{"u8", model.VoteAway},
		} {
			_, _, err := v.Record(ctx, "ev-1", vote.user, vote.choice)
			So(err, ShouldBeNil)
		}

		Convey("Totals sum to the distinct voter count", func() {
			s, err := v.Stats(ctx, "ev-1")
			So(err, ShouldBeNil)
			So(s.VoterCount, ShouldEqual, 8)
			So(s.Totals["1"]+s.Totals["draw"]+s.Totals["2"], ShouldEqual, 8)
		})

		Convey("Percentages carry one decimal place", func() {
			s, err := v.Stats(ctx, "ev-1")
			So(err, ShouldBeNil)
			So(s.Percentages["1"], ShouldEqual, 62.5)
			So(s.Percentages["draw"], ShouldEqual, 12.5)
			So(s.Percentages["2"], ShouldEqual, 25.0)
		})

		Convey("Stats are read-only and idempotent", func() {
			a, err := v.Stats(ctx, "ev-1")
			So(err, ShouldBeNil)
			b, err := v.Stats(ctx, "ev-1")
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})

		Convey("An unknown event yields an empty snapshot", func() {
			s, err := v.Stats(ctx, "ghost")
			So(err, ShouldBeNil)
			So(s.VoterCount, ShouldEqual, 0)
			So(s.Percentages["1"], ShouldEqual, 0)
		})
	})
}
