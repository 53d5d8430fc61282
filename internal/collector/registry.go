package collector

import (
	"time"

	"github.com/tipio/tipio/internal/adapters/providers"
	"github.com/tipio/tipio/internal/adapters/providers/oddsapi"
	"github.com/tipio/tipio/internal/adapters/providers/official"
	"github.com/tipio/tipio/internal/adapters/providers/statsapi"
)

// Credentials carries the per-provider endpoints and keys. A provider with
// an empty key stays registered but short-circuits to a failed result.
type Credentials struct {
	StatsBaseURL    string
	StatsAPIKey     string
	OfficialBaseURL string
	OfficialAPIKey  string
	OddsBaseURL     string
	OddsAPIKey      string

	ProviderTimeout time.Duration
}

// DefaultProviders builds the fixed provider set in weight order.
func DefaultProviders(creds Credentials) []providers.Provider {
	return []providers.Provider{
		statsapi.New(creds.StatsBaseURL, creds.StatsAPIKey, creds.ProviderTimeout),
		official.New(creds.OfficialBaseURL, creds.OfficialAPIKey, creds.ProviderTimeout),
		oddsapi.New(creds.OddsBaseURL, creds.OddsAPIKey, creds.ProviderTimeout),
	}
}
