package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// ErrInvalidFilter is returned for unknown periods or sizes and inverted ranges.
var ErrInvalidFilter = errors.New("invalid filter")

// Period selects the time window of a dashboard view.
type Period string

// Supported periods. Relative periods are anchored at the latest transfer.
const (
	PeriodAll    Period = "all"
	Period7D     Period = "7d"
	Period30D    Period = "30d"
	Period90D    Period = "90d"
	PeriodYTD    Period = "ytd"
	PeriodCustom Period = "custom"
)

var relativeDays = map[Period]int{
	Period7D:  7,
	Period30D: 30,
	Period90D: 90,
}

// ParsePeriod parses a period name. Empty means PeriodAll.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PeriodAll, nil
	case PeriodAll, Period7D, Period30D, Period90D, PeriodYTD, PeriodCustom:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrInvalidFilter, s)
}

// SizeCategory buckets a single transfer by its ETH value.
type SizeCategory string

// Transfer size categories.
const (
	SizeSmall  SizeCategory = "small"  // < 10 ETH
	SizeMedium SizeCategory = "medium" // [10, 50)
	SizeLarge  SizeCategory = "large"  // [50, 100)
	SizeWhale  SizeCategory = "whale"  // >= 100
)

// SizeCategories lists every category in ascending order.
var SizeCategories = []SizeCategory{SizeSmall, SizeMedium, SizeLarge, SizeWhale}

// CategorizeSize returns the size category of a transfer value.
func CategorizeSize(value float64) SizeCategory {
	switch {
	case value < 10:
		return SizeSmall
	case value < 50:
		return SizeMedium
	case value < 100:
		return SizeLarge
	default:
		return SizeWhale
	}
}

// ParseSizes parses a comma separated list of size categories.
func ParseSizes(s string) ([]SizeCategory, error) {
	var sizes []SizeCategory
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		c := SizeCategory(part)
		switch c {
		case SizeSmall, SizeMedium, SizeLarge, SizeWhale:
			sizes = append(sizes, c)
		default:
			return nil, fmt.Errorf("%w: unknown size %q", ErrInvalidFilter, part)
		}
	}
	return sizes, nil
}

// Filter narrows the transfers a dashboard summary is built from.
// Start and End are only used by PeriodCustom and compare calendar dates
// inclusively; a zero bound leaves that side open.
type Filter struct {
	Period Period         `json:"period"`
	Start  time.Time      `json:"start,omitempty"`
	End    time.Time      `json:"end,omitempty"`
	Sizes  []SizeCategory `json:"sizes,omitempty"` // empty = all sizes
}

// Validate checks the filter is well-formed.
func (f Filter) Validate() error {
	if _, err := ParsePeriod(string(f.Period)); err != nil {
		return err
	}
	if f.Period == PeriodCustom && !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidFilter,
			domain.DateOf(f.End), domain.DateOf(f.Start))
	}
	return nil
}

// Apply returns the transfers matching the filter, preserving input order.
// now is only consulted for PeriodYTD.
func (f Filter) Apply(transfers []*domain.Transfer, now time.Time) []*domain.Transfer {
	if len(transfers) == 0 {
		return nil
	}

	inPeriod := f.periodMatcher(transfers, now)

	allowed := make(map[SizeCategory]bool, len(f.Sizes))
	for _, s := range f.Sizes {
		allowed[s] = true
	}

	var out []*domain.Transfer
	for _, t := range transfers {
		if !inPeriod(t) {
			continue
		}
		if len(allowed) > 0 && !allowed[CategorizeSize(t.Value)] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (f Filter) periodMatcher(transfers []*domain.Transfer, now time.Time) func(*domain.Transfer) bool {
	if days, ok := relativeDays[f.Period]; ok {
		latest := transfers[0].Timestamp
		for _, t := range transfers[1:] {
			if t.Timestamp.After(latest) {
				latest = t.Timestamp
			}
		}
		cutoff := latest.Add(-time.Duration(days) * 24 * time.Hour)
		return func(t *domain.Transfer) bool { return !t.Timestamp.Before(cutoff) }
	}

	switch f.Period {
	case PeriodYTD:
		year := now.UTC().Year()
		return func(t *domain.Transfer) bool { return t.Timestamp.UTC().Year() == year }
	case PeriodCustom:
		var from, to string
		if !f.Start.IsZero() {
			from = domain.DateOf(f.Start)
		}
		if !f.End.IsZero() {
			to = domain.DateOf(f.End)
		}
		return func(t *domain.Transfer) bool {
			d := domain.DateOf(t.Timestamp)
			return (from == "" || d >= from) && (to == "" || d <= to)
		}
	}
	return func(*domain.Transfer) bool { return true }
}
