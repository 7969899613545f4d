package vault

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ManualFeed is an in-memory price feed used for tests and manual overrides
// during incident response. Answers are stored in 8-decimal fixed point.
type ManualFeed struct {
	mu    sync.RWMutex
	round RoundData
	err   error
}

// NewManualFeed seeds a feed with the supplied 8-decimal answer stamped at
// the given time.
func NewManualFeed(answer *big.Int, updatedAt time.Time) *ManualFeed {
	f := &ManualFeed{}
	f.Update(answer, updatedAt)
	return f
}

// Update replaces the stored round, bumping the round identifier.
func (f *ManualFeed) Update(answer *big.Int, updatedAt time.Time) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round.RoundID++
	f.round.AnsweredInRound = f.round.RoundID
	f.round.StartedAt = updatedAt
	f.round.UpdatedAt = updatedAt
	f.round.Answer = new(big.Int)
	if answer != nil {
		f.round.Answer.Set(answer)
	}
	f.err = nil
}

// Fail makes subsequent reads return the supplied error until the next Update.
func (f *ManualFeed) Fail(err error) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// LatestRoundData implements PriceFeed.
func (f *ManualFeed) LatestRoundData() (RoundData, error) {
	if f == nil {
		return RoundData{}, errFeedNotConfigured
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return RoundData{}, f.err
	}
	round := f.round
	if round.Answer != nil {
		round.Answer = new(big.Int).Set(round.Answer)
	}
	return round, nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultSimplePriceEndpoint = "https://api.coingecko.com/api/v3/simple/price"
	// defaultFeedTimeout bounds a single upstream quote request. Callers hold
	// the engine lock while reading prices, so a hung upstream must not hang
	// the feed.
	defaultFeedTimeout = 10 * time.Second
)

// HTTPFeed adapts a CoinGecko-style simple price endpoint into the PriceFeed
// contract, quoting 8-decimal USD answers.
type HTTPFeed struct {
	client   HTTPDoer
	endpoint string
	assetID  string

	mu      sync.Mutex
	roundID uint64
}

// NewHTTPFeed constructs a feed for the upstream asset identifier. When the
// client is nil http.DefaultClient is used.
func NewHTTPFeed(client HTTPDoer, endpoint, assetID string) *HTTPFeed {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = defaultSimplePriceEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: defaultFeedTimeout}
	}
	return &HTTPFeed{client: client, endpoint: ep, assetID: strings.ToLower(strings.TrimSpace(assetID))}
}

// LatestRoundData implements PriceFeed by querying the upstream endpoint.
func (f *HTTPFeed) LatestRoundData() (RoundData, error) {
	if f == nil {
		return RoundData{}, errFeedNotConfigured
	}
	if f.assetID == "" {
		return RoundData{}, fmt.Errorf("http feed: asset identifier required")
	}
	req, err := http.NewRequest(http.MethodGet, f.endpoint, nil)
	if err != nil {
		return RoundData{}, err
	}
	values := url.Values{}
	values.Set("ids", f.assetID)
	values.Set("vs_currencies", "usd")
	values.Set("include_last_updated_at", "true")
	req.URL.RawQuery = values.Encode()

	resp, err := f.client.Do(req)
	if err != nil {
		return RoundData{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RoundData{}, fmt.Errorf("http feed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]struct {
		USD           json.Number `json:"usd"`
		LastUpdatedAt int64       `json:"last_updated_at"`
	}
	if err := decoder.Decode(&payload); err != nil {
		return RoundData{}, fmt.Errorf("http feed: decode: %w", err)
	}
	entry, ok := payload[f.assetID]
	if !ok {
		return RoundData{}, fmt.Errorf("http feed: quote missing for %s", f.assetID)
	}
	answer, err := ParseFeedAnswer(entry.USD.String())
	if err != nil {
		return RoundData{}, err
	}
	updated := time.Now().UTC()
	if entry.LastUpdatedAt > 0 {
		updated = time.Unix(entry.LastUpdatedAt, 0).UTC()
	}

	f.mu.Lock()
	f.roundID++
	id := f.roundID
	f.mu.Unlock()

	return RoundData{
		RoundID:         id,
		Answer:          answer,
		StartedAt:       updated,
		UpdatedAt:       updated,
		AnsweredInRound: id,
	}, nil
}

// ParseFeedAnswer converts a decimal price string into the feed's 8-decimal
// fixed-point representation, truncating excess fractional digits.
func ParseFeedAnswer(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("http feed: empty price")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("http feed: invalid price %q", raw)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(feedDecimals), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}
