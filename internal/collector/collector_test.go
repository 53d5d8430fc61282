package collector_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tipio/tipio/internal/adapters/providers"
	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/collector"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeProvider returns a canned result and counts invocations.
type fakeProvider struct {
	name       string
	weight     int
	configured bool
	succeed    bool
	payload    providers.Payload
	calls      int
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Weight() int      { return f.weight }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) CollectAll(ctx context.Context, partyA, partyB, sport string) providers.Result {
	f.calls++
	if !f.succeed {
		return providers.Failure(f.name, errors.New("upstream down"))
	}
	return providers.Result{Provider: f.name, Success: true, Payload: f.payload}
}

func testEvent() model.Event {
	return model.Event{
		ID:     "ev-1",
		PartyA: "Arsenal",
		PartyB: "Chelsea",
		Sport:  "football",
		Status: model.EventScheduled,
	}
}

func newCache(t *testing.T) store.Store {
	t.Helper()
	return store.NewFileStore(filepath.Join(t.TempDir(), "collections.json"))
}

func TestCollectQuality(t *testing.T) {
	Convey("Given three providers with fixed weights", t, func() {
		ctx := context.Background()
		stats := &fakeProvider{name: "stats", weight: 35, configured: true, succeed: true,
			payload: providers.Payload{Statistics: &providers.TeamComparison{}}}
		official := &fakeProvider{name: "official", weight: 35, configured: true, succeed: false}
		odds := &fakeProvider{name: "odds", weight: 20, configured: true, succeed: true,
			payload: providers.Payload{Odds: &providers.OddsQuote{}}}

		c := collector.New([]providers.Provider{stats, official, odds}, newCache(t))

		Convey("When one mid-weight provider fails", func() {
			report := c.Collect(ctx, testEvent())

			Convey("The quality score is the sum of succeeding weights", func() {
				So(report.QualityScore, ShouldEqual, 55)
			})

			Convey("Sources list only the succeeding providers, sorted", func() {
				So(report.SourcesUsed, ShouldResemble, []string{"odds", "stats"})
			})

			Convey("The narrative is non-empty", func() {
				So(report.Narrative, ShouldNotBeEmpty)
			})
		})
	})
}

func TestCollectBlackout(t *testing.T) {
	Convey("Given a total provider blackout", t, func() {
		ctx := context.Background()
		dead := &fakeProvider{name: "stats", weight: 35, configured: true, succeed: false}
		unconfigured := &fakeProvider{name: "odds", weight: 20, configured: false}

		c := collector.New([]providers.Provider{dead, unconfigured}, newCache(t))
		report := c.Collect(ctx, testEvent())

		Convey("Collection still succeeds with quality zero", func() {
			So(report.QualityScore, ShouldEqual, 0)
			So(report.SourcesUsed, ShouldBeEmpty)
			So(report.Narrative, ShouldNotBeEmpty)
		})

		Convey("Unconfigured providers are never invoked", func() {
			So(unconfigured.calls, ShouldEqual, 0)
		})
	})
}

func TestCollectCache(t *testing.T) {
	Convey("Given a collector with a 30 minute cache", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }

		p := &fakeProvider{name: "stats", weight: 35, configured: true, succeed: true,
			payload: providers.Payload{Statistics: &providers.TeamComparison{}}}
		c := collector.New([]providers.Provider{p}, newCache(t),
			collector.WithCacheTTL(30*time.Minute),
			collector.WithClock(clock),
		)

		first := c.Collect(ctx, testEvent())
		So(p.calls, ShouldEqual, 1)

		Convey("A repeat within the TTL is served verbatim from cache", func() {
			now = now.Add(29 * time.Minute)
			second := c.Collect(ctx, testEvent())
			So(p.calls, ShouldEqual, 1)
			So(second.QualityScore, ShouldEqual, first.QualityScore)
			So(second.Narrative, ShouldEqual, first.Narrative)
		})

		Convey("A repeat past the TTL hits the providers again", func() {
			now = now.Add(31 * time.Minute)
			_ = c.Collect(ctx, testEvent())
			So(p.calls, ShouldEqual, 2)
		})

		Convey("A different fixture does not share the cache entry", func() {
			other := testEvent()
			other.PartyA = "Liverpool"
			_ = c.Collect(ctx, other)
			So(p.calls, ShouldEqual, 2)
		})
	})
}
