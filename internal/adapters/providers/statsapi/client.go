// Package statsapi implements the statistics provider client.
package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tipio/tipio/internal/adapters/providers"
	"github.com/tipio/tipio/internal/domain/match"
)

const defaultTimeout = 12 * time.Second

// Client talks to the statistics API. One attempt per sub-resource, no
// retries: a missing sub-resource leaves its payload section nil.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a statistics provider client. An empty apiKey leaves the
// provider unconfigured.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (c *Client) Name() string     { return providers.NameStats }
func (c *Client) Weight() int      { return providers.WeightStats }
func (c *Client) Configured() bool { return c.apiKey != "" }

// Wire shapes. Validated here, at the provider boundary, so nothing
// dict-shaped leaks into rendering code.
type searchResponse struct {
	Events []candidateEvent `json:"events"`
}

type candidateEvent struct {
	ID       string `json:"id"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
}

type statisticsResponse struct {
	Home teamStatsWire `json:"home"`
	Away teamStatsWire `json:"away"`
}

type teamStatsWire struct {
	Name            string  `json:"name"`
	Form            string  `json:"form"`
	GoalsForAvg     float64 `json:"goals_for_avg"`
	GoalsAgainstAvg float64 `json:"goals_against_avg"`
	Position        int     `json:"position"`
	WinRate         float64 `json:"win_rate"`
}

type lineupsResponse struct {
	HomeFormation string   `json:"home_formation"`
	AwayFormation string   `json:"away_formation"`
	HomeMissing   []string `json:"home_missing"`
	AwayMissing   []string `json:"away_missing"`
}

type h2hResponse struct {
	Matches []struct {
		Date      time.Time `json:"date"`
		HomeTeam  string    `json:"home_team"`
		AwayTeam  string    `json:"away_team"`
		HomeGoals int       `json:"home_goals"`
		AwayGoals int       `json:"away_goals"`
	} `json:"matches"`
	HomeWins int `json:"home_wins"`
	Draws    int `json:"draws"`
	AwayWins int `json:"away_wins"`
}

// CollectAll searches for the fixture and gathers statistics, lineups and
// head-to-head data. Sub-resources are independently best-effort.
func (c *Client) CollectAll(ctx context.Context, partyA, partyB, sport string) providers.Result {
	if !c.Configured() {
		return providers.Failure(c.Name(), errors.New("provider not configured"))
	}

	candidate, err := c.search(ctx, partyA, partyB, sport)
	if err != nil {
		return providers.Failure(c.Name(), err)
	}

	var payload providers.Payload
	if stats, err := c.fetchStatistics(ctx, candidate.ID); err == nil {
		payload.Statistics = stats
	}
	if lineups, err := c.fetchLineups(ctx, candidate.ID); err == nil {
		payload.Lineups = lineups
	}
	if h2h, err := c.fetchHeadToHead(ctx, candidate.ID); err == nil {
		payload.HeadToHead = h2h
	}

	if payload.Empty() {
		return providers.Failure(c.Name(), errors.New("no sub-resource available"))
	}
	return providers.Result{Provider: c.Name(), Success: true, Payload: payload}
}

// search returns the first candidate event that fuzzy-matches the parties.
func (c *Client) search(ctx context.Context, partyA, partyB, sport string) (*candidateEvent, error) {
	q := url.Values{}
	q.Set("team_a", partyA)
	q.Set("team_b", partyB)
	q.Set("sport", sport)
	q.Set("date", time.Now().Format("2006-01-02"))

	var resp searchResponse
	if err := c.get(ctx, "/events/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	for i := range resp.Events {
		cand := &resp.Events[i]
		if match.Fixture(partyA, partyB, cand.HomeTeam, cand.AwayTeam) {
			return cand, nil
		}
	}
	return nil, errors.New("no matching event found")
}

func (c *Client) fetchStatistics(ctx context.Context, eventID string) (*providers.TeamComparison, error) {
	var resp statisticsResponse
	if err := c.get(ctx, "/events/"+url.PathEscape(eventID)+"/statistics", &resp); err != nil {
		return nil, err
	}
	return &providers.TeamComparison{
		Home: toTeamStats(resp.Home),
		Away: toTeamStats(resp.Away),
	}, nil
}

func toTeamStats(w teamStatsWire) providers.TeamStats {
	return providers.TeamStats{
		Name:            w.Name,
		Form:            w.Form,
		GoalsForAvg:     w.GoalsForAvg,
		GoalsAgainstAvg: w.GoalsAgainstAvg,
		Position:        w.Position,
		WinRate:         w.WinRate,
	}
}

func (c *Client) fetchLineups(ctx context.Context, eventID string) (*providers.Lineups, error) {
	var resp lineupsResponse
	if err := c.get(ctx, "/events/"+url.PathEscape(eventID)+"/lineups", &resp); err != nil {
		return nil, err
	}
	return &providers.Lineups{
		HomeFormation: resp.HomeFormation,
		AwayFormation: resp.AwayFormation,
		HomeMissing:   resp.HomeMissing,
		AwayMissing:   resp.AwayMissing,
	}, nil
}

func (c *Client) fetchHeadToHead(ctx context.Context, eventID string) (*providers.HeadToHead, error) {
	var resp h2hResponse
	if err := c.get(ctx, "/events/"+url.PathEscape(eventID)+"/h2h", &resp); err != nil {
		return nil, err
	}
	h2h := &providers.HeadToHead{
		HomeWins: resp.HomeWins,
		Draws:    resp.Draws,
		AwayWins: resp.AwayWins,
	}
	for _, m := range resp.Matches {
		h2h.Matches = append(h2h.Matches, providers.H2HMatch{
			Date:      m.Date,
			HomeTeam:  m.HomeTeam,
			AwayTeam:  m.AwayTeam,
			HomeGoals: m.HomeGoals,
			AwayGoals: m.AwayGoals,
		})
	}
	return h2h, nil
}

// get makes an HTTP GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("stats API error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
