// Package official implements the official-data provider client.
package official

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

// Client talks to the official fixtures API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates an official-data provider client. An empty apiKey leaves the
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

func (c *Client) Name() string     { return providers.NameOfficial }
func (c *Client) Weight() int      { return providers.WeightOfficial }
func (c *Client) Configured() bool { return c.apiKey != "" }

type matchesResponse struct {
	Matches []fixtureWire `json:"matches"`
}

type fixtureWire struct {
	ID       int64 `json:"id"`
	HomeTeam struct {
		Name string `json:"name"`
	} `json:"homeTeam"`
	AwayTeam struct {
		Name string `json:"name"`
	} `json:"awayTeam"`
	Competition struct {
		Name string `json:"name"`
	} `json:"competition"`
	UTCDate time.Time `json:"utcDate"`
	Matchday int      `json:"matchday"`
	Venue    string   `json:"venue"`
	Referees []struct {
		Name string `json:"name"`
	} `json:"referees"`
}

// CollectAll finds the fixture in today's official schedule. The fixture
// listing already carries the detail fields, so one additional detail fetch
// fills venue and referees when the listing omitted them.
func (c *Client) CollectAll(ctx context.Context, partyA, partyB, sport string) providers.Result {
	if !c.Configured() {
		return providers.Failure(c.Name(), errors.New("provider not configured"))
	}

	fixture, err := c.search(ctx, partyA, partyB)
	if err != nil {
		return providers.Failure(c.Name(), err)
	}

	// Detail fetch is best-effort; the listing entry alone is a success.
	if detailed, err := c.fetchDetails(ctx, fixture.ID); err == nil {
		fixture = detailed
	}

	info := &providers.FixtureInfo{
		Competition: fixture.Competition.Name,
		Venue:       fixture.Venue,
		Round:       roundLabel(fixture.Matchday),
		Kickoff:     fixture.UTCDate,
		HomeTeam:    fixture.HomeTeam.Name,
		AwayTeam:    fixture.AwayTeam.Name,
	}
	if len(fixture.Referees) > 0 {
		info.Referee = fixture.Referees[0].Name
	}
	return providers.Result{
		Provider: c.Name(),
		Success:  true,
		Payload:  providers.Payload{Fixture: info},
	}
}

func roundLabel(matchday int) string {
	if matchday <= 0 {
		return ""
	}
	return fmt.Sprintf("Matchday %d", matchday)
}

func (c *Client) search(ctx context.Context, partyA, partyB string) (*fixtureWire, error) {
	day := time.Now().Format("2006-01-02")
	q := url.Values{}
	q.Set("dateFrom", day)
	q.Set("dateTo", day)

	var resp matchesResponse
	if err := c.get(ctx, "/matches?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	for i := range resp.Matches {
		cand := &resp.Matches[i]
		if match.Fixture(partyA, partyB, cand.HomeTeam.Name, cand.AwayTeam.Name) {
			return cand, nil
		}
	}
	return nil, errors.New("no matching fixture found")
}

func (c *Client) fetchDetails(ctx context.Context, id int64) (*fixtureWire, error) {
	var resp fixtureWire
	if err := c.get(ctx, fmt.Sprintf("/matches/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("official API error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
