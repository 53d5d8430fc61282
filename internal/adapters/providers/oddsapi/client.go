// Package oddsapi implements the odds provider client.
package oddsapi

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

// Client talks to the bookmaker odds API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates an odds provider client. An empty apiKey leaves the provider
// unconfigured.
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

func (c *Client) Name() string     { return providers.NameOdds }
func (c *Client) Weight() int      { return providers.WeightOdds }
func (c *Client) Configured() bool { return c.apiKey != "" }

type oddsEventWire struct {
	HomeTeam   string `json:"home_team"`
	AwayTeam   string `json:"away_team"`
	Bookmakers []struct {
		Title   string `json:"title"`
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string  `json:"name"`
				Price float64 `json:"price"`
				Point float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// CollectAll fetches the odds board for the sport and extracts the
// match-winner and totals markets for the requested fixture.
func (c *Client) CollectAll(ctx context.Context, partyA, partyB, sport string) providers.Result {
	if !c.Configured() {
		return providers.Failure(c.Name(), errors.New("provider not configured"))
	}

	quote, err := c.fetchOdds(ctx, partyA, partyB, sport)
	if err != nil {
		return providers.Failure(c.Name(), err)
	}
	return providers.Result{
		Provider: c.Name(),
		Success:  true,
		Payload:  providers.Payload{Odds: quote},
	}
}

func (c *Client) fetchOdds(ctx context.Context, partyA, partyB, sport string) (*providers.OddsQuote, error) {
	q := url.Values{}
	q.Set("regions", "eu")
	q.Set("markets", "h2h,totals")
	q.Set("apiKey", c.apiKey)
	path := "/sports/" + url.PathEscape(sport) + "/odds?" + q.Encode()

	var events []oddsEventWire
	if err := c.get(ctx, path, &events); err != nil {
		return nil, err
	}

	for i := range events {
		ev := &events[i]
		if !match.Fixture(partyA, partyB, ev.HomeTeam, ev.AwayTeam) {
			continue
		}
		quote := extractQuote(ev)
		if quote.MatchWinner == nil && quote.Totals == nil {
			return nil, errors.New("fixture listed without usable markets")
		}
		return quote, nil
	}
	return nil, errors.New("no matching fixture on the odds board")
}

// extractQuote uses the first bookmaker carrying each market; bookmaker
// names are collected from the whole board entry.
func extractQuote(ev *oddsEventWire) *providers.OddsQuote {
	quote := &providers.OddsQuote{}
	for _, bk := range ev.Bookmakers {
		quote.Bookmakers = append(quote.Bookmakers, bk.Title)
		for _, mkt := range bk.Markets {
			switch mkt.Key {
			case "h2h":
				if quote.MatchWinner != nil {
					continue
				}
				winner := &providers.WinnerOdds{}
				for _, out := range mkt.Outcomes {
					switch {
					case out.Name == ev.HomeTeam:
						winner.Home = out.Price
					case out.Name == ev.AwayTeam:
						winner.Away = out.Price
					case out.Name == "Draw":
						winner.Draw = out.Price
					}
				}
				if winner.Home > 0 && winner.Away > 0 {
					quote.MatchWinner = winner
				}
			case "totals":
				if quote.Totals != nil {
					continue
				}
				totals := &providers.TotalsOdds{}
				for _, out := range mkt.Outcomes {
					totals.Line = out.Point
					switch out.Name {
					case "Over":
						totals.Over = out.Price
					case "Under":
						totals.Under = out.Price
					}
				}
				if totals.Over > 0 && totals.Under > 0 {
					quote.Totals = totals
				}
			}
		}
	}
	return quote
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("odds API error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
