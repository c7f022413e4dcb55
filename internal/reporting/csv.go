package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// CSVFileName returns the export file name of a bundle part.
func CSVFileName(part string) string {
	return part + ".csv"
}

// RenderCSV renders one bundle part as CSV.
func RenderCSV(part string, b *domain.Bundle) (string, error) {
	switch part {
	case domain.PartHolderStats:
		return RenderHolderStatsCSV(b.HolderStats), nil
	case domain.PartLiquidity:
		return RenderLiquidityCSV(b.Liquidity), nil
	case domain.PartWhaleTrades:
		return RenderTransfersCSV(b.WhaleTrades), nil
	case domain.PartPriceImpact:
		return RenderPriceImpactCSV(b.PriceImpact), nil
	case domain.PartAnomalies:
		return RenderAnomaliesCSV(b.Anomalies), nil
	}
	return "", fmt.Errorf("unknown bundle part %q", part)
}

// RenderHolderStatsCSV renders holder statistics as CSV string.
func RenderHolderStatsCSV(stats []domain.HolderStat) string {
	var sb strings.Builder
	sb.WriteString("address,total_value_received,holder_type\n")
	for _, h := range stats {
		sb.WriteString(fmt.Sprintf("%s,%s,%s\n", h.Address, formatFloat(h.TotalValueReceived), h.HolderType))
	}
	return sb.String()
}

// RenderLiquidityCSV renders daily liquidity as CSV string.
func RenderLiquidityCSV(days []domain.DailyLiquidity) string {
	var sb strings.Builder
	sb.WriteString("date,total_value,transaction_count,liquidity_score\n")
	for _, d := range days {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s\n",
			d.Date, formatFloat(d.TotalValue), d.TransactionCount, formatFloat(d.LiquidityScore)))
	}
	return sb.String()
}

// RenderTransfersCSV renders transfers (whale trades) as CSV string.
func RenderTransfersCSV(transfers []domain.Transfer) string {
	var sb strings.Builder
	sb.WriteString("timestamp,tx_hash,event_index,block_number,sender,receiver,value,value_usd\n")
	for _, t := range transfers {
		writeTransfer(&sb, t)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// RenderPriceImpactCSV renders per-day whale impact as CSV string.
func RenderPriceImpactCSV(days []domain.PriceImpact) string {
	var sb strings.Builder
	sb.WriteString("date,daily_average,whale_average,whale_count,impact_ratio\n")
	for _, d := range days {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s\n",
			d.Date, formatFloat(d.DailyAverage), formatFloat(d.WhaleAverage), d.WhaleCount, formatFloat(d.ImpactRatio)))
	}
	return sb.String()
}

// RenderAnomaliesCSV renders anomalies as CSV string.
func RenderAnomaliesCSV(anomalies []domain.Anomaly) string {
	var sb strings.Builder
	sb.WriteString("timestamp,tx_hash,event_index,block_number,sender,receiver,value,value_usd,rolling_mean,rolling_std,z_score\n")
	for _, a := range anomalies {
		writeTransfer(&sb, a.Transfer)
		sb.WriteString(fmt.Sprintf(",%s,%s,%s\n",
			formatFloat(a.RollingMean), formatFloat(a.RollingStd), formatFloat(a.ZScore)))
	}
	return sb.String()
}

func writeTransfer(sb *strings.Builder, t domain.Transfer) {
	usd := ""
	if t.ValueUSD != nil {
		usd = formatFloat(*t.ValueUSD)
	}
	sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%s,%s,%s,%s",
		t.Timestamp.UTC().Format(time.RFC3339), t.TxHash, t.EventIndex, t.BlockNumber,
		t.Sender, t.Receiver, formatFloat(t.Value), usd))
}

// formatFloat uses the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
