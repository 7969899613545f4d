package vault

import (
	"math/big"
	"time"
)

// defaultStaleAfter bounds how old feed data may be before solvency and payout
// computations refuse to use it.
const defaultStaleAfter = 3 * time.Hour

// feedDecimals is the fractional precision reported by upstream price feeds.
const feedDecimals = 8

// RoundData is the raw observation reported by a price feed. Answer carries
// 8-decimal fixed-point USD per unit of the asset.
type RoundData struct {
	RoundID         uint64
	Answer          *big.Int
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// PriceFeed is the external price source primitive. Implementations are
// untrusted; the adapter validates every answer before use.
type PriceFeed interface {
	LatestRoundData() (RoundData, error)
}

// OracleAdapter wraps a PriceFeed, scales its 8-decimal answers to the
// engine's 18-decimal convention and enforces the staleness window on every
// read that gates solvency or payouts.
type OracleAdapter struct {
	feed       PriceFeed
	staleAfter time.Duration
	now        func() time.Time
}

// NewOracleAdapter wires an adapter around the supplied feed using the default
// three hour staleness window.
func NewOracleAdapter(feed PriceFeed) *OracleAdapter {
	return &OracleAdapter{feed: feed, staleAfter: defaultStaleAfter, now: time.Now}
}

// SetStaleAfter overrides the staleness window. Non-positive values restore
// the default.
func (a *OracleAdapter) SetStaleAfter(d time.Duration) {
	if a == nil {
		return
	}
	if d <= 0 {
		d = defaultStaleAfter
	}
	a.staleAfter = d
}

func (a *OracleAdapter) setClock(now func() time.Time) {
	if a == nil || now == nil {
		return
	}
	a.now = now
}

// CheckedPrice returns the latest feed answer scaled to 18 decimals, failing
// with ErrStalePrice when the observation is older than the staleness window.
// Every price read that gates solvency or a payout must route through here.
func (a *OracleAdapter) CheckedPrice() (*big.Int, error) {
	price, updatedAt, err := a.read()
	if err != nil {
		return nil, err
	}
	if a.now().Sub(updatedAt) > a.staleAfter {
		return nil, errStalePrice
	}
	return price, nil
}

// RawPrice returns the latest scaled answer without the staleness check. It
// exists only for informational getters and must never feed a state change.
func (a *OracleAdapter) RawPrice() (*big.Int, error) {
	price, _, err := a.read()
	if err != nil {
		return nil, err
	}
	return price, nil
}

// StaleAfter reports the configured staleness window.
func (a *OracleAdapter) StaleAfter() time.Duration {
	if a == nil {
		return defaultStaleAfter
	}
	return a.staleAfter
}

func (a *OracleAdapter) read() (*big.Int, time.Time, error) {
	if a == nil || a.feed == nil {
		return nil, time.Time{}, errFeedNotConfigured
	}
	round, err := a.feed.LatestRoundData()
	if err != nil {
		return nil, time.Time{}, err
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return nil, time.Time{}, errNegativeFeedAnswer
	}
	scaled := new(big.Int).Mul(round.Answer, additionalFeedPrecision)
	return scaled, round.UpdatedAt, nil
}
