package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tipio/tipio/internal/adapters/providers"
	"github.com/tipio/tipio/internal/adapters/store"
	service "github.com/tipio/tipio/internal/app"
	"github.com/tipio/tipio/internal/collector"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/internal/engine"
	"github.com/tipio/tipio/internal/ledger"
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

// fixture bundles a service over fresh stores. With no providers and no
// backend every prediction degrades to the deterministic fallback, which
// keeps the pipeline fully offline.
type fixture struct {
	svc         *service.Service
	predictions store.Store
	notices     store.Store
}

func newFixture(t *testing.T, now func() time.Time, opts ...service.Option) *fixture {
	t.Helper()
	dir := t.TempDir()

	collections := store.NewFileStore(filepath.Join(dir, "collections.json"))
	predictions := store.NewFileStore(filepath.Join(dir, "predictions.json"))
	profiles := store.NewFileStore(filepath.Join(dir, "profiles.json"))
	votesStore := store.NewFileStore(filepath.Join(dir, "votes.json"))
	notices := store.NewFileStore(filepath.Join(dir, "notices.json"))

	col := collector.New([]providers.Provider{}, collections, collector.WithClock(now))
	eng := engine.New(nil, predictions, []string{"m1"}, engine.WithClock(now))
	ldg := ledger.New(profiles, ledger.WithClock(now))
	vst := votes.New(votesStore, votes.WithClock(now))

	opts = append([]service.Option{
		service.WithLogger(logger.Get()),
		service.WithClock(now),
	}, opts...)

	return &fixture{
		svc:         service.New(col, eng, ldg, vst, predictions, notices, opts...),
		predictions: predictions,
		notices:     notices,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testEvent(id string) model.Event {
	return model.Event{
		ID:     id,
		PartyA: "Arsenal",
		PartyB: "Chelsea",
		Sport:  "football",
		Status: model.EventScheduled,
	}
}

func TestRequestPrediction(t *testing.T) {
	Convey("Given a service with no external data or backend", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f := newFixture(t, fixedClock(now))

		Convey("A request still yields a renderable degraded result", func() {
			res, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
			So(err, ShouldBeNil)
			So(res.IsFallback, ShouldBeTrue)
			So(res.QualityScore, ShouldEqual, 0)
			So(res.SourcesUsed, ShouldBeEmpty)
			So(res.Payload.Validate(), ShouldBeNil)
			So(res.PredictionID, ShouldNotBeEmpty)
			So(res.EventTitle, ShouldEqual, "Arsenal vs Chelsea")
		})

		Convey("The first prediction reports the starter achievements", func() {
			res, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
			So(err, ShouldBeNil)
			So(res.NewAchievements, ShouldContain, "first_prediction")
		})

		Convey("Cache entry and history row land together", func() {
			res, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
			So(err, ShouldBeNil)

			var cached map[string]any
			found, err := f.predictions.Get(ctx, "cache/ev-1", &cached)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)

			var history []model.Prediction
			found, err = f.predictions.Get(ctx, "history", &history)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(history, ShouldHaveLength, 1)
			So(history[0].ID, ShouldEqual, res.PredictionID)
			So(history[0].Status, ShouldEqual, model.PredictionPending)
		})

		Convey("History serves newest first and filters by user", func() {
			_, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
			So(err, ShouldBeNil)
			_, err = f.svc.RequestPrediction(ctx, testEvent("ev-2"), "u1", "alice")
			So(err, ShouldBeNil)
			_, err = f.svc.RequestPrediction(ctx, testEvent("ev-3"), "u2", "bob")
			So(err, ShouldBeNil)

			rows, err := f.svc.History(ctx, "u1", 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].EventID, ShouldEqual, "ev-2")
			So(rows[1].EventID, ShouldEqual, "ev-1")
		})
	})
}

func TestQuota(t *testing.T) {
	Convey("Given a free-tier user with a quota of 5", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		f := newFixture(t, clock)

		Convey("The allowance is spent one request at a time", func() {
			for i := 0; i < 5; i++ {
				res, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
				So(err, ShouldBeNil)
				So(res.QuotaRemaining, ShouldEqual, 4-i)
			}

			Convey("The sixth request is rejected", func() {
				_, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
				So(errors.Is(err, service.ErrQuotaExceeded), ShouldBeTrue)
			})

			Convey("Another user's allowance is unaffected", func() {
				_, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u2", "bob")
				So(err, ShouldBeNil)
			})

			Convey("The next local day resets the allowance", func() {
				now = now.Add(13 * time.Hour) // past midnight UTC
				_, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestRecordVote(t *testing.T) {
	Convey("Given a user voting on an event", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f := newFixture(t, fixedClock(now))

		Convey("The first vote awards the participation point", func() {
			totals, err := f.svc.RecordVote(ctx, "ev-1", "u1", "alice", model.VoteHome)
			So(err, ShouldBeNil)
			So(totals.VoterCount, ShouldEqual, 1)

			view, found, err := f.svc.UserStats(ctx, "u1")
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(view.TotalPoints, ShouldEqual, 1)
		})

		Convey("A re-vote changes the tally but pays nothing extra", func() {
			_, err := f.svc.RecordVote(ctx, "ev-1", "u1", "alice", model.VoteHome)
			So(err, ShouldBeNil)
			totals, err := f.svc.RecordVote(ctx, "ev-1", "u1", "alice", model.VoteDraw)
			So(err, ShouldBeNil)
			So(totals.Totals["draw"], ShouldEqual, 1)
			So(totals.Totals["1"], ShouldEqual, 0)

			view, _, err := f.svc.UserStats(ctx, "u1")
			So(err, ShouldBeNil)
			So(view.TotalPoints, ShouldEqual, 1)
		})
	})
}

func TestUserStatsAndLeaderboard(t *testing.T) {
	Convey("Given two active users", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f := newFixture(t, fixedClock(now))

		_, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), "u1", "alice")
		So(err, ShouldBeNil)
		_, err = f.svc.RecordVote(ctx, "ev-1", "u2", "bob", model.VoteAway)
		So(err, ShouldBeNil)

		Convey("UserStats reflects points, rank and remaining quota", func() {
			view, found, err := f.svc.UserStats(ctx, "u1")
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(view.Rank, ShouldEqual, 1)
			So(view.PredictionsCount, ShouldEqual, 1)
			So(view.QuotaRemaining, ShouldEqual, 4)
			So(view.Achievements, ShouldContain, "first_prediction")
		})

		Convey("Unknown users report not found", func() {
			_, found, err := f.svc.UserStats(ctx, "ghost")
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})

		Convey("The leaderboard orders by points", func() {
			rows, err := f.svc.Leaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].UserID, ShouldEqual, "u1")
			So(rows[1].UserID, ShouldEqual, "u2")
		})
	})
}

func TestHistoryCap(t *testing.T) {
	Convey("Given a tiny history cap", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f := newFixture(t, fixedClock(now), service.WithHistoryCap(3), service.WithLeaderboardLimit(100))

		// Admin tier would be needed to blow past free quota with one user,
		// so spread requests across users instead.
		for _, u := range []string{"u1", "u2", "u3", "u4", "u5"} {
			_, err := f.svc.RequestPrediction(ctx, testEvent("ev-1"), u, "")
			So(err, ShouldBeNil)
		}

		Convey("The ring keeps only the newest entries", func() {
			var history []model.Prediction
			found, err := f.predictions.Get(ctx, "history", &history)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(history, ShouldHaveLength, 3)
			So(history[0].UserID, ShouldEqual, "u3")
			So(history[2].UserID, ShouldEqual, "u5")
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a stopped service", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f := newFixture(t, fixedClock(now))

		Convey("Start and Stop are idempotent", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			So(f.svc.Start(ctx), ShouldBeNil)
			f.svc.Stop()
			f.svc.Stop()
		})

		Convey("A first vote produces a delivered notice once started", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			defer f.svc.Stop()

			_, err := f.svc.RecordVote(ctx, "ev-1", "u1", "alice", model.VoteHome)
			So(err, ShouldBeNil)

			deadline := time.Now().Add(2 * time.Second)
			for f.notices.Count(ctx) == 0 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			So(f.notices.Count(ctx), ShouldEqual, 1)

			Convey("And a re-vote produces no second notice", func() {
				_, err := f.svc.RecordVote(ctx, "ev-1", "u1", "alice", model.VoteDraw)
				So(err, ShouldBeNil)
				time.Sleep(50 * time.Millisecond)
				So(f.notices.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("GetStats reports lifecycle state", func() {
			stats := f.svc.GetStats()
			So(stats["started"], ShouldEqual, false)

			So(f.svc.Start(ctx), ShouldBeNil)
			stats = f.svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			f.svc.Stop()
		})
	})
}
