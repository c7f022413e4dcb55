package server

import (
	"time"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/domain"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK        bool `json:"ok"`
	Transfers int  `json:"transfers"`
}

// TransferJSON is the wire form of domain.Transfer.
type TransferJSON struct {
	TxHash      string    `json:"tx_hash"`
	EventIndex  int       `json:"event_index"`
	BlockNumber int64     `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
	Sender      string    `json:"sender"`
	Receiver    string    `json:"receiver"`
	Value       float64   `json:"value"`
	ValueUSD    *float64  `json:"value_usd"`
}

// HolderStatJSON is the wire form of domain.HolderStat.
type HolderStatJSON struct {
	Address            string  `json:"address"`
	TotalValueReceived float64 `json:"total_value_received"`
	HolderType         string  `json:"holder_type"`
}

// LiquidityJSON is the wire form of domain.DailyLiquidity.
type LiquidityJSON struct {
	Date             string  `json:"date"`
	TotalValue       float64 `json:"total_value"`
	TransactionCount int     `json:"transaction_count"`
	LiquidityScore   float64 `json:"liquidity_score"`
}

// PriceImpactJSON is the wire form of domain.PriceImpact.
type PriceImpactJSON struct {
	Date         string  `json:"date"`
	DailyAverage float64 `json:"daily_average"`
	WhaleAverage float64 `json:"whale_average"`
	WhaleCount   int     `json:"whale_count"`
	ImpactRatio  float64 `json:"impact_ratio"`
}

// AnomalyJSON is the wire form of domain.Anomaly.
type AnomalyJSON struct {
	Transfer    TransferJSON `json:"transfer"`
	RollingMean float64      `json:"rolling_mean"`
	RollingStd  float64      `json:"rolling_std"`
	ZScore      float64      `json:"z_score"`
}

// ParamsJSON echoes the analysis parameters used.
type ParamsJSON struct {
	WhaleQuantile float64 `json:"whale_quantile"`
	AnomalyWindow int     `json:"anomaly_window"`
	AnomalySigma  float64 `json:"anomaly_sigma"`
}

// AnalysisResponse is the full analysis bundle.
type AnalysisResponse struct {
	HolderStats    []HolderStatJSON  `json:"holder_stats"`
	Liquidity      []LiquidityJSON   `json:"liquidity"`
	WhaleTrades    []TransferJSON    `json:"whale_trades"`
	PriceImpact    []PriceImpactJSON `json:"price_impact"`
	Anomalies      []AnomalyJSON     `json:"anomalies"`
	WhaleThreshold float64           `json:"whale_threshold"`
	RowsAnalyzed   int               `json:"rows_analyzed"`
	RowsExcluded   int               `json:"rows_excluded"`
	Params         ParamsJSON        `json:"params"`
}

// PartResponse carries a single bundle part.
type PartResponse struct {
	Part  string `json:"part"`
	Items any    `json:"items"`
}

func toTransferJSON(t domain.Transfer) TransferJSON {
	return TransferJSON{
		TxHash:      t.TxHash,
		EventIndex:  t.EventIndex,
		BlockNumber: t.BlockNumber,
		Timestamp:   t.Timestamp.UTC(),
		Sender:      t.Sender,
		Receiver:    t.Receiver,
		Value:       t.Value,
		ValueUSD:    t.ValueUSD,
	}
}

func toAnalysisResponse(b *domain.Bundle, p analytics.Params) AnalysisResponse {
	resp := AnalysisResponse{
		HolderStats:    make([]HolderStatJSON, len(b.HolderStats)),
		Liquidity:      make([]LiquidityJSON, len(b.Liquidity)),
		WhaleTrades:    make([]TransferJSON, len(b.WhaleTrades)),
		PriceImpact:    make([]PriceImpactJSON, len(b.PriceImpact)),
		Anomalies:      make([]AnomalyJSON, len(b.Anomalies)),
		WhaleThreshold: b.WhaleThreshold,
		RowsAnalyzed:   b.RowsAnalyzed,
		RowsExcluded:   b.RowsExcluded,
		Params: ParamsJSON{
			WhaleQuantile: p.WhaleQuantile,
			AnomalyWindow: p.AnomalyWindow,
			AnomalySigma:  p.AnomalySigma,
		},
	}
	for i, h := range b.HolderStats {
		resp.HolderStats[i] = HolderStatJSON{Address: h.Address, TotalValueReceived: h.TotalValueReceived, HolderType: string(h.HolderType)}
	}
	for i, l := range b.Liquidity {
		resp.Liquidity[i] = LiquidityJSON(l)
	}
	for i, w := range b.WhaleTrades {
		resp.WhaleTrades[i] = toTransferJSON(w)
	}
	for i, pi := range b.PriceImpact {
		resp.PriceImpact[i] = PriceImpactJSON(pi)
	}
	for i, a := range b.Anomalies {
		resp.Anomalies[i] = AnomalyJSON{
			Transfer:    toTransferJSON(a.Transfer),
			RollingMean: a.RollingMean,
			RollingStd:  a.RollingStd,
			ZScore:      a.ZScore,
		}
	}
	return resp
}

// part selects one bundle table by name.
func (r AnalysisResponse) part(name string) (any, bool) {
	switch name {
	case domain.PartHolderStats:
		return r.HolderStats, true
	case domain.PartLiquidity:
		return r.Liquidity, true
	case domain.PartWhaleTrades:
		return r.WhaleTrades, true
	case domain.PartPriceImpact:
		return r.PriceImpact, true
	case domain.PartAnomalies:
		return r.Anomalies, true
	}
	return nil, false
}
