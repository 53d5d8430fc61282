// Package providers defines the contract for external match-data sources.
//
// A provider is queried once per collection attempt and never retried: the
// collector fans out across providers under one deadline, and stale data is
// preferable to blowing that deadline with per-source retries.
package providers

import (
	"context"
	"time"
)

// Fixed per-provider quality weights. They sum to 100 so the report quality
// score stays in [0,100] by construction.
const (
	WeightStats    = 35
	WeightOfficial = 35
	WeightOdds     = 20
)

// Provider names used in reports, metrics and config.
const (
	NameStats    = "stats"
	NameOfficial = "official"
	NameOdds     = "odds"
)

// TeamStats summarizes one side's recent numbers.
type TeamStats struct {
	Name            string  `json:"name"`
	Form            string  `json:"form,omitempty"`
	GoalsForAvg     float64 `json:"goals_for_avg,omitempty"`
	GoalsAgainstAvg float64 `json:"goals_against_avg,omitempty"`
	Position        int     `json:"position,omitempty"`
	WinRate         float64 `json:"win_rate,omitempty"`
}

// TeamComparison pairs the two sides' statistics.
type TeamComparison struct {
	Home TeamStats `json:"home"`
	Away TeamStats `json:"away"`
}

// Lineups carries formations and notable absences when published.
type Lineups struct {
	HomeFormation string   `json:"home_formation,omitempty"`
	AwayFormation string   `json:"away_formation,omitempty"`
	HomeMissing   []string `json:"home_missing,omitempty"`
	AwayMissing   []string `json:"away_missing,omitempty"`
}

// H2HMatch is one historical meeting between the two sides.
type H2HMatch struct {
	Date      time.Time `json:"date"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeGoals int       `json:"home_goals"`
	AwayGoals int       `json:"away_goals"`
}

// HeadToHead aggregates the recent meetings.
type HeadToHead struct {
	Matches  []H2HMatch `json:"matches,omitempty"`
	HomeWins int        `json:"home_wins"`
	Draws    int        `json:"draws"`
	AwayWins int        `json:"away_wins"`
}

// FixtureInfo describes the scheduled fixture from the official source.
type FixtureInfo struct {
	Competition string    `json:"competition,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	Referee     string    `json:"referee,omitempty"`
	Round       string    `json:"round,omitempty"`
	Kickoff     time.Time `json:"kickoff,omitempty"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
}

// WinnerOdds are decimal odds for the three-way market.
type WinnerOdds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// TotalsOdds are decimal odds for the goals totals market.
type TotalsOdds struct {
	Line  float64 `json:"line"`
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

// OddsQuote carries the bookmaker view of the fixture.
type OddsQuote struct {
	MatchWinner *WinnerOdds `json:"match_winner,omitempty"`
	Totals      *TotalsOdds `json:"totals,omitempty"`
	Bookmakers  []string    `json:"bookmakers,omitempty"`
}

// Payload carries the typed, optional sections one provider can contribute.
// A missing sub-resource leaves its field nil; it is not an overall failure.
type Payload struct {
	Statistics *TeamComparison `json:"statistics,omitempty"`
	Lineups    *Lineups        `json:"lineups,omitempty"`
	HeadToHead *HeadToHead     `json:"head_to_head,omitempty"`
	Fixture    *FixtureInfo    `json:"fixture,omitempty"`
	Odds       *OddsQuote      `json:"odds,omitempty"`
}

// Empty reports whether no section was populated.
func (p Payload) Empty() bool {
	return p.Statistics == nil && p.Lineups == nil && p.HeadToHead == nil &&
		p.Fixture == nil && p.Odds == nil
}

// Result is produced once per collection attempt and consumed immediately
// into a report; it is never persisted.
type Result struct {
	Provider string  `json:"provider"`
	Success  bool    `json:"success"`
	Payload  Payload `json:"payload"`
	Err      string  `json:"error,omitempty"`
}

// Failure builds a failed result for a provider.
func Failure(name string, err error) Result {
	r := Result{Provider: name}
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// Provider is one external data source. Implementations must absorb their
// own failures: every error path returns a Result with Success=false.
type Provider interface {
	// Name identifies the provider in reports and metrics.
	Name() string

	// Weight is the provider's contribution to the report quality score.
	Weight() int

	// Configured reports whether credentials are present. Unconfigured
	// providers short-circuit to a failed result without network calls.
	Configured() bool

	// CollectAll fetches everything the provider knows about the fixture.
	CollectAll(ctx context.Context, partyA, partyB, sport string) Result
}
