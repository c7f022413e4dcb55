package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// Thresholds configures the sufficiency checks.
type Thresholds struct {
	MinTransfers       int     // rows with a usable value
	MinHolders         int     // distinct receivers; quartile classification needs 4
	MinDays            int     // calendar days between first and last transfer, inclusive
	MaxExcludedRatio   float64 // share of rows dropped for null/negative value
	AnomalyWindow      int     // transfers needed before the rolling window is full
	MinPricedTransfers int     // rows with a USD value; 0 disables the check
}

// DefaultThresholds returns the thresholds used by the analyze command.
func DefaultThresholds(anomalyWindow int) Thresholds {
	return Thresholds{
		MinTransfers:     10,
		MinHolders:       4,
		MinDays:          7,
		MaxExcludedRatio: 0.05,
		AnomalyWindow:    anomalyWindow,
	}
}

// SufficiencyChecker validates that a ledger supports a meaningful analysis.
// Failing checks do not stop the pipeline; they are reported in the
// Data Quality section.
type SufficiencyChecker struct {
	thresholds Thresholds
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(thresholds Thresholds) *SufficiencyChecker {
	return &SufficiencyChecker{thresholds: thresholds}
}

// Check runs every check over transfers.
func (c *SufficiencyChecker) Check(transfers []*domain.Transfer) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 6),
		AllPass: true,
		Errors:  []string{},
	}

	var valid []*domain.Transfer
	excluded := 0
	for _, t := range transfers {
		if t == nil {
			continue
		}
		if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) || t.Value < 0 {
			excluded++
			continue
		}
		valid = append(valid, t)
	}

	add := func(check SufficiencyCheck, errs []string) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
			result.Errors = append(result.Errors, errs...)
		}
	}

	add(c.checkTransferCount(valid), nil)
	add(c.checkDistinctHolders(valid), nil)
	add(c.checkCoverage(valid), nil)
	add(c.checkExcluded(excluded, excluded+len(valid)), nil)
	add(checkDuplicates(valid))
	add(c.checkAnomalyWindow(valid), nil)
	if c.thresholds.MinPricedTransfers > 0 {
		add(c.checkPriced(valid), nil)
	}

	return result
}

// checkTransferCount: usable transfers >= MinTransfers.
func (c *SufficiencyChecker) checkTransferCount(transfers []*domain.Transfer) SufficiencyCheck {
	return SufficiencyCheck{
		Name:      "Usable transfers",
		Threshold: fmt.Sprintf(">= %d", c.thresholds.MinTransfers),
		Actual:    fmt.Sprintf("%d", len(transfers)),
		Pass:      len(transfers) >= c.thresholds.MinTransfers,
	}
}

// checkDistinctHolders: distinct receivers with positive value >= MinHolders.
func (c *SufficiencyChecker) checkDistinctHolders(transfers []*domain.Transfer) SufficiencyCheck {
	totals := make(map[string]float64)
	for _, t := range transfers {
		totals[t.Receiver] += t.Value
	}
	holders := 0
	for _, v := range totals {
		if v > 0 {
			holders++
		}
	}
	return SufficiencyCheck{
		Name:      "Distinct holders",
		Threshold: fmt.Sprintf(">= %d", c.thresholds.MinHolders),
		Actual:    fmt.Sprintf("%d", holders),
		Pass:      holders >= c.thresholds.MinHolders,
	}
}

// checkCoverage: calendar span of the ledger >= MinDays.
func (c *SufficiencyChecker) checkCoverage(transfers []*domain.Transfer) SufficiencyCheck {
	check := SufficiencyCheck{
		Name:      "Days covered",
		Threshold: fmt.Sprintf(">= %d days", c.thresholds.MinDays),
		Actual:    "0 days",
	}
	if len(transfers) == 0 {
		return check
	}

	minTs, maxTs := transfers[0].Timestamp, transfers[0].Timestamp
	active := make(map[string]bool)
	for _, t := range transfers {
		if t.Timestamp.Before(minTs) {
			minTs = t.Timestamp
		}
		if t.Timestamp.After(maxTs) {
			maxTs = t.Timestamp
		}
		active[domain.DateOf(t.Timestamp)] = true
	}

	// Truncate to day
	minDay := truncateDay(minTs)
	maxDay := truncateDay(maxTs)
	rangeDays := int(maxDay.Sub(minDay).Hours()/24) + 1

	check.Actual = fmt.Sprintf("%d days (%d active)", rangeDays, len(active))
	check.Pass = rangeDays >= c.thresholds.MinDays
	return check
}

// checkExcluded: excluded / total <= MaxExcludedRatio.
func (c *SufficiencyChecker) checkExcluded(excluded, total int) SufficiencyCheck {
	ratio := 0.0
	if total > 0 {
		ratio = float64(excluded) / float64(total)
	}
	return SufficiencyCheck{
		Name:      "Excluded rows",
		Threshold: fmt.Sprintf("<= %.1f%%", c.thresholds.MaxExcludedRatio*100),
		Actual:    fmt.Sprintf("%.1f%% (%d/%d)", ratio*100, excluded, total),
		Pass:      ratio <= c.thresholds.MaxExcludedRatio,
	}
}

// checkDuplicates: duplicate (tx_hash, event_index) count == 0.
func checkDuplicates(transfers []*domain.Transfer) (SufficiencyCheck, []string) {
	seen := make(map[string]int)
	for _, t := range transfers {
		seen[fmt.Sprintf("%s#%d", t.TxHash, t.EventIndex)]++
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	duplicateCount := 0
	var errors []string
	for _, key := range keys {
		if count := seen[key]; count > 1 {
			duplicateCount++
			errors = append(errors, fmt.Sprintf("duplicate transfer: %s (count=%d)", key, count))
		}
	}

	return SufficiencyCheck{
		Name:      "Duplicate transfers",
		Threshold: "= 0",
		Actual:    fmt.Sprintf("%d", duplicateCount),
		Pass:      duplicateCount == 0,
	}, errors
}

// checkAnomalyWindow: usable transfers >= anomaly window, so at least one
// transfer is scored against a full window.
func (c *SufficiencyChecker) checkAnomalyWindow(transfers []*domain.Transfer) SufficiencyCheck {
	return SufficiencyCheck{
		Name:      "Anomaly window filled",
		Threshold: fmt.Sprintf(">= %d transfers", c.thresholds.AnomalyWindow),
		Actual:    fmt.Sprintf("%d", len(transfers)),
		Pass:      len(transfers) >= c.thresholds.AnomalyWindow,
	}
}

// checkPriced: transfers with a USD value >= MinPricedTransfers.
func (c *SufficiencyChecker) checkPriced(transfers []*domain.Transfer) SufficiencyCheck {
	priced := 0
	for _, t := range transfers {
		if t.ValueUSD != nil {
			priced++
		}
	}
	return SufficiencyCheck{
		Name:      "Priced transfers",
		Threshold: fmt.Sprintf(">= %d", c.thresholds.MinPricedTransfers),
		Actual:    fmt.Sprintf("%d", priced),
		Pass:      priced >= c.thresholds.MinPricedTransfers,
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
