package model

// PortfolioSnapshot is the read model produced by the analytics service.
// The advisor only ever reads it; a nil snapshot means the analytics fetch
// failed and downstream consumers must degrade rather than fabricate numbers.
type PortfolioSnapshot struct {
	TotalValue           float64            `json:"total_value"`
	Assets               []Asset            `json:"assets"`
	RiskProfile          string             `json:"risk_profile,omitempty"`
	AssetAllocation      map[string]float64 `json:"asset_allocation"`
	GeographicAllocation map[string]float64 `json:"geographic_allocation"`
	Metrics              PortfolioMetrics   `json:"metrics"`
	LastUpdated          string             `json:"last_updated,omitempty"`
}

// Asset is a single holding within a snapshot. Symbol is unique per snapshot.
type Asset struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	AssetType     string  `json:"asset_type"`
	Region        string  `json:"region"`
	AllocationPct float64 `json:"allocation"`
	Value         float64 `json:"value"`
	ChangePct     float64 `json:"change_percent"`
}

// PortfolioMetrics holds derived statistics supplied by the analytics
// service. The analytics side may omit any of the ratio fields, so they are
// pointers; absent values render as placeholders, never as zeroes.
type PortfolioMetrics struct {
	Return      *float64 `json:"portfolio_return,omitempty"`
	Volatility  *float64 `json:"portfolio_volatility,omitempty"`
	SharpeRatio *float64 `json:"sharpe_ratio,omitempty"`
	NumAssets   int      `json:"num_assets"`
}
