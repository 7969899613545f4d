package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type VaultMetrics struct {
	operations   *prometheus.CounterVec
	liquidations prometheus.Counter
	debtMinted   prometheus.Counter
	assetPrice   *prometheus.GaugeVec
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vault_operations_total",
				Help: "Count of vault operations by kind and result.",
			}, []string{"op", "result"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_liquidations_total",
				Help: "Count of completed liquidations.",
			}),
			debtMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vault_debt_minted_total",
				Help: "Cumulative synthetic debt minted, in whole tokens.",
			}),
			assetPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "vault_asset_price_usd",
				Help: "Latest observed collateral price in USD.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			vaultRegistry.operations,
			vaultRegistry.liquidations,
			vaultRegistry.debtMinted,
			vaultRegistry.assetPrice,
		)
	})
	return vaultRegistry
}

func (m *VaultMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *VaultMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

func (m *VaultMetrics) ObserveMintedTokens(tokens float64) {
	if m == nil {
		return
	}
	m.debtMinted.Add(tokens)
}

func (m *VaultMetrics) SetAssetPrice(asset string, usd float64) {
	if m == nil {
		return
	}
	m.assetPrice.WithLabelValues(asset).Set(usd)
}
