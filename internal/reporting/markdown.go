package reporting

import (
	"fmt"
	"strings"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// maxAnomalyRows bounds the anomaly table; the full list is in anomalies.csv.
const maxAnomalyRows = 25

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# CryptoPunks Transfer Analysis\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Source != "" {
		sb.WriteString(fmt.Sprintf("Source: %s\n\n", r.Source))
	}

	// Data Summary
	ds := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Transfers Analyzed | %d |\n", ds.TotalTransfers))
	sb.WriteString(fmt.Sprintf("| Rows Excluded | %d |\n", ds.RowsExcluded))
	sb.WriteString(fmt.Sprintf("| Unique Senders | %d |\n", ds.UniqueSenders))
	sb.WriteString(fmt.Sprintf("| Unique Receivers | %d |\n", ds.UniqueReceivers))
	sb.WriteString(fmt.Sprintf("| Total Volume (ETH) | %.4f |\n", ds.TotalVolume))
	if ds.PricedTransfers > 0 {
		sb.WriteString(fmt.Sprintf("| Total Volume (USD, %d priced) | %.2f |\n", ds.PricedTransfers, ds.TotalVolumeUSD))
	}
	sb.WriteString(fmt.Sprintf("| Date Range | %s .. %s |\n", formatDate(ds.DateRangeStart), formatDate(ds.DateRangeEnd)))
	sb.WriteString(fmt.Sprintf("| Active Days | %d |\n", ds.Days))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")
		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Interpret the sections below with care.\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}
	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString(fmt.Sprintf("- Whale quantile: %.2f\n", r.Params.WhaleQuantile))
	sb.WriteString(fmt.Sprintf("- Anomaly window: %d transfers\n", r.Params.AnomalyWindow))
	sb.WriteString(fmt.Sprintf("- Anomaly threshold: %.1f sigma\n\n", r.Params.AnomalySigma))

	if r.Bundle == nil {
		return sb.String()
	}
	b := r.Bundle

	// Holder Distribution
	sb.WriteString("## Holder Distribution\n\n")
	if len(r.HolderBreakdown) > 0 {
		sb.WriteString(fmt.Sprintf("%d holders with positive received value.\n\n", len(b.HolderStats)))
		sb.WriteString("| Type | Holders | Total Received (ETH) | Share |\n")
		sb.WriteString("|------|---------|----------------------|-------|\n")
		for _, h := range r.HolderBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.2f%% |\n",
				h.HolderType, h.Holders, h.TotalValue, h.Share*100))
		}
	} else {
		sb.WriteString("No holders available.\n")
	}
	sb.WriteString("\n")

	// Liquidity
	sb.WriteString("## Liquidity\n\n")
	if len(r.TopLiquidity) > 0 {
		sb.WriteString(fmt.Sprintf("Top %d of %d days by liquidity score (1.0 = average day).\n\n", len(r.TopLiquidity), len(b.Liquidity)))
		sb.WriteString("| Date | Volume (ETH) | Transfers | Score |\n")
		sb.WriteString("|------|--------------|-----------|-------|\n")
		for _, d := range r.TopLiquidity {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %d | %.4f |\n",
				d.Date, d.TotalValue, d.TransactionCount, d.LiquidityScore))
		}
	} else {
		sb.WriteString("No liquidity data available.\n")
	}
	sb.WriteString("\n")

	// Market Impact
	sb.WriteString("## Whale Market Impact\n\n")
	sb.WriteString(fmt.Sprintf("Whale threshold: %.4f ETH (%d whale transfers).\n\n", b.WhaleThreshold, len(b.WhaleTrades)))
	if len(r.TopImpact) > 0 {
		sb.WriteString("| Date | Daily Avg (ETH) | Whale Avg (ETH) | Whales | Impact Ratio |\n")
		sb.WriteString("|------|-----------------|-----------------|--------|--------------|\n")
		for _, d := range r.TopImpact {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %d | %.4f |\n",
				d.Date, d.DailyAverage, d.WhaleAverage, d.WhaleCount, d.ImpactRatio))
		}
	} else {
		sb.WriteString("No days with whale transfers.\n")
	}
	sb.WriteString("\n")

	// Anomalies
	sb.WriteString("## Anomalies\n\n")
	if len(b.Anomalies) > 0 {
		sb.WriteString(fmt.Sprintf("%d transfers flagged.\n\n", len(b.Anomalies)))
		sb.WriteString("| Timestamp | Tx Hash | Value (ETH) | Rolling Mean | Rolling Std | Z-Score |\n")
		sb.WriteString("|-----------|---------|-------------|--------------|-------------|---------|\n")
		for i, a := range b.Anomalies {
			if i == maxAnomalyRows {
				sb.WriteString(fmt.Sprintf("\n%d more in anomalies.csv.\n", len(b.Anomalies)-maxAnomalyRows))
				break
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f | %.4f | %.2f |\n",
				a.Transfer.Timestamp.UTC().Format(time.RFC3339), a.Transfer.TxHash,
				a.Transfer.Value, a.RollingMean, a.RollingStd, a.ZScore))
		}
	} else {
		sb.WriteString("No anomalies detected.\n")
	}
	sb.WriteString("\n")

	// Reproducibility
	rep := r.Reproducibility
	if rep.GeneratorVersion != "" || rep.DataVersion != "" {
		sb.WriteString("## Reproducibility\n\n")
		sb.WriteString(fmt.Sprintf("- Report timestamp: %s\n", rep.ReportTimestamp.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("- Generator version: %s\n", rep.GeneratorVersion))
		sb.WriteString(fmt.Sprintf("- Data version: %s\n", rep.DataVersion))
		if rep.CommitHash != "" {
			sb.WriteString(fmt.Sprintf("- Commit: %s\n", rep.CommitHash))
		}
		if rep.ReplayCommand != "" {
			sb.WriteString(fmt.Sprintf("- Replay: `%s`\n", rep.ReplayCommand))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(domain.DateLayout)
}
