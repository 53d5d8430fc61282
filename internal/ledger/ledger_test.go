package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/internal/ledger"
	"github.com/tipio/tipio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newLedger(t *testing.T, opts ...ledger.Option) (*ledger.Ledger, store.Store) {
	t.Helper()
	profiles := store.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"))
	return ledger.New(profiles, opts...), profiles
}

func TestGetOrCreate(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		ctx := context.Background()
		l, _ := newLedger(t)

		Convey("A first interaction creates the profile lazily", func() {
			p, err := l.GetOrCreate(ctx, "u1", "alice")
			So(err, ShouldBeNil)
			So(p.UserID, ShouldEqual, "u1")
			So(p.Username, ShouldEqual, "alice")
			So(p.Tier, ShouldEqual, model.TierFree)
			So(p.TotalPoints, ShouldEqual, 0)
		})

		Convey("A later call with a new username refreshes it", func() {
			_, err := l.GetOrCreate(ctx, "u1", "alice")
			So(err, ShouldBeNil)
			p, err := l.GetOrCreate(ctx, "u1", "alice_renamed")
			So(err, ShouldBeNil)
			So(p.Username, ShouldEqual, "alice_renamed")
		})

		Convey("An empty username keeps the stored one", func() {
			_, err := l.GetOrCreate(ctx, "u1", "alice")
			So(err, ShouldBeNil)
			p, err := l.GetOrCreate(ctx, "u1", "")
			So(err, ShouldBeNil)
			So(p.Username, ShouldEqual, "alice")
		})
	})
}

func TestScorePrediction(t *testing.T) {
	Convey("Given a fresh user", t, func() {
		ctx := context.Background()
		l, _ := newLedger(t)

		Convey("The first prediction unlocks the starter achievements", func() {
			p, unlocked, err := l.ScorePrediction(ctx, "u1", "alice")
			So(err, ShouldBeNil)
			So(p.PredictionsCount, ShouldEqual, 1)

			ids := make([]string, len(unlocked))
			for i, a := range unlocked {
				ids[i] = a.ID
			}
			// Alone on the board the user also ranks in the top tiers.
			So(ids, ShouldResemble, []string{"first_prediction", "top_10", "top_3"})
			So(p.TotalPoints, ShouldEqual, 10+50+150)
		})

		Convey("Repeating the catalog never pays twice", func() {
			_, first, err := l.ScorePrediction(ctx, "u1", "alice")
			So(err, ShouldBeNil)
			So(first, ShouldNotBeEmpty)

			p, second, err := l.ScorePrediction(ctx, "u1", "alice")
			So(err, ShouldBeNil)
			So(second, ShouldBeEmpty)
			So(p.PredictionsCount, ShouldEqual, 2)
			So(p.TotalPoints, ShouldEqual, 10+50+150)
		})

		Convey("The tenth prediction unlocks the volume award", func() {
			var unlocked []ledger.Achievement
			for i := 0; i < 10; i++ {
				var err error
				_, unlocked, err = l.ScorePrediction(ctx, "u1", "alice")
				So(err, ShouldBeNil)
			}
			So(unlocked, ShouldHaveLength, 1)
			So(unlocked[0].ID, ShouldEqual, "predictions_10")
		})
	})
}

func TestCheckAndAwardAchievements(t *testing.T) {
	Convey("Given a scored user", t, func() {
		ctx := context.Background()
		l, _ := newLedger(t)

		_, _, err := l.ScorePrediction(ctx, "u1", "alice")
		So(err, ShouldBeNil)

		Convey("A re-check on an unchanged profile awards nothing", func() {
			unlocked, err := l.CheckAndAwardAchievements(ctx, "u1")
			So(err, ShouldBeNil)
			So(unlocked, ShouldBeEmpty)
		})

		Convey("A re-check does not touch the prediction counter", func() {
			_, err := l.CheckAndAwardAchievements(ctx, "u1")
			So(err, ShouldBeNil)
			p, found, err := l.Profile(ctx, "u1")
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(p.PredictionsCount, ShouldEqual, 1)
		})

		Convey("An unknown user is an error", func() {
			_, err := l.CheckAndAwardAchievements(ctx, "ghost")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestAwardVotePoints(t *testing.T) {
	Convey("Given a user voting twice on different events", t, func() {
		ctx := context.Background()
		l, _ := newLedger(t)

		So(l.AwardVotePoints(ctx, "u1", "alice"), ShouldBeNil)
		So(l.AwardVotePoints(ctx, "u1", "alice"), ShouldBeNil)

		p, found, err := l.Profile(ctx, "u1")
		So(err, ShouldBeNil)
		So(found, ShouldBeTrue)
		So(p.TotalPoints, ShouldEqual, 2)
	})
}

func TestLeaderboard(t *testing.T) {
	Convey("Given three users with distinct point totals", t, func() {
		ctx := context.Background()
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		now := base
		l, profiles := newLedger(t, ledger.WithClock(func() time.Time { return now }))

		// Join at distinct instants so tie-breaks are observable.
		for _, u := range []string{"u1", "u2", "u3"} {
			_, err := l.GetOrCreate(ctx, u, u)
			So(err, ShouldBeNil)
			now = now.Add(time.Minute)
		}
		So(l.AwardVotePoints(ctx, "u2", ""), ShouldBeNil)
		So(l.AwardVotePoints(ctx, "u2", ""), ShouldBeNil)
		So(l.AwardVotePoints(ctx, "u3", ""), ShouldBeNil)

		Convey("Rows come back ordered by points descending", func() {
			rows, err := l.Leaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[0].UserID, ShouldEqual, "u2")
			So(rows[1].UserID, ShouldEqual, "u3")
			So(rows[2].UserID, ShouldEqual, "u1")
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[2].Rank, ShouldEqual, 3)
		})

		Convey("The limit truncates the result", func() {
			rows, err := l.Leaderboard(ctx, 2)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("Equal points break ties by earliest join date", func() {
			So(l.AwardVotePoints(ctx, "u3", ""), ShouldBeNil) // u2 and u3 now both at 2
			rows, err := l.Leaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(rows[0].UserID, ShouldEqual, "u2")
			So(rows[1].UserID, ShouldEqual, "u3")
		})

		Convey("Rank reports a user's 1-based position", func() {
			rank, err := l.Rank(ctx, "u3")
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 2)

			rank, err = l.Rank(ctx, "ghost")
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 0)
		})

		So(profiles.Count(ctx), ShouldEqual, 3)
	})
}
