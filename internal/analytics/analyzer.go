// Package analytics computes descriptive market analytics over a cleaned
// transfer ledger: holder classification, daily liquidity scores, whale
// market impact and rolling z-score anomalies.
package analytics

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cryptopunks-analysis/internal/domain"
)

// Pass names, used in errors, logs and metrics labels.
const (
	PassNormalize    = "normalize"
	PassHolders      = "holders"
	PassLiquidity    = "liquidity"
	PassMarketImpact = "market_impact"
	PassAnomalies    = "anomalies"
)

// Params are the tunable thresholds of the analysis passes.
type Params struct {
	WhaleQuantile float64 // quantile of the value distribution marking whale trades
	AnomalyWindow int     // trailing window size, in transfers
	AnomalySigma  float64 // z-score above which a transfer is anomalous
	Parallelism   int     // max passes running at once
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		WhaleQuantile: 0.9,
		AnomalyWindow: 50,
		AnomalySigma:  3.0,
		Parallelism:   4,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case !validQuantile(p.WhaleQuantile):
		return &InvalidInputError{Column: "whale_quantile", Value: fmt.Sprint(p.WhaleQuantile), Reason: "must be in [0, 1]"}
	case p.AnomalyWindow < 1:
		return &InvalidInputError{Column: "anomaly_window", Value: fmt.Sprint(p.AnomalyWindow), Reason: "must be >= 1"}
	case !(p.AnomalySigma > 0) || math.IsInf(p.AnomalySigma, 1):
		return &InvalidInputError{Column: "anomaly_sigma", Value: fmt.Sprint(p.AnomalySigma), Reason: "must be finite and > 0"}
	case p.Parallelism < 1:
		return &InvalidInputError{Column: "parallelism", Value: fmt.Sprint(p.Parallelism), Reason: "must be >= 1"}
	}
	return nil
}

// validQuantile reports whether q is in [0, 1]. NaN is rejected.
func validQuantile(q float64) bool {
	return q >= 0 && q <= 1
}

// Recorder receives per-pass timings. Implemented by observability.Metrics.
type Recorder interface {
	ObservePass(pass string, d time.Duration, err error)
	AddTransfersAnalyzed(n int)
}

// Options for creating an Analyzer. Zero values take defaults.
type Options struct {
	Params   *Params
	Columns  *ColumnMapping
	Logger   logrus.FieldLogger
	Recorder Recorder
}

// Analyzer runs the normalizer and the four analysis passes.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	params   Params
	columns  ColumnMapping
	logger   logrus.FieldLogger
	recorder Recorder
}

// New creates an Analyzer. Returns *InvalidInputError for bad params.
func New(opts Options) (*Analyzer, error) {
	a := &Analyzer{
		params:   DefaultParams(),
		columns:  DefaultColumns,
		logger:   discardLogger(),
		recorder: opts.Recorder,
	}
	if opts.Params != nil {
		a.params = *opts.Params
	}
	if opts.Columns != nil {
		a.columns = *opts.Columns
	}
	if opts.Logger != nil {
		a.logger = opts.Logger
	}
	if err := a.params.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Params returns the parameters in effect.
func (a *Analyzer) Params() Params {
	return a.params
}

// Analyze normalizes table with the configured column mapping and analyzes it.
func (a *Analyzer) Analyze(ctx context.Context, table Table) (*domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ledger, err := Normalize(table, a.columns)
	a.observe(PassNormalize, start, err)
	if err != nil {
		return nil, &AnalysisError{Pass: PassNormalize, Err: err}
	}
	return a.AnalyzeLedger(ctx, ledger)
}

// AnalyzeTransfers analyzes already-typed transfers.
func (a *Analyzer) AnalyzeTransfers(ctx context.Context, transfers []*domain.Transfer) (*domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ledger, err := NewLedger(transfers)
	a.observe(PassNormalize, start, err)
	if err != nil {
		return nil, &AnalysisError{Pass: PassNormalize, Err: err}
	}
	return a.AnalyzeLedger(ctx, ledger)
}

// AnalyzeLedger runs the four passes over a normalized ledger.
// Passes run concurrently; if any fails no bundle is returned, and the
// error reported is the first failure in pass order.
func (a *Analyzer) AnalyzeLedger(ctx context.Context, ledger *Ledger) (*domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := a.logger.WithFields(logrus.Fields{
		"component": "analytics",
		"rows":      ledger.Len(),
		"excluded":  ledger.Excluded,
	})
	log.Debug("analysis started")

	var (
		holders   []domain.HolderStat
		liquidity []domain.DailyLiquidity
		impact    *MarketImpact
		anomalies []domain.Anomaly
	)
	passes := []string{PassHolders, PassLiquidity, PassMarketImpact, PassAnomalies}
	errs := make([]error, len(passes))

	var g errgroup.Group
	g.SetLimit(a.params.Parallelism)
	for i, pass := range passes {
		i, pass := i, pass
		g.Go(func() error {
			start := time.Now()
			var err error
			switch pass {
			case PassHolders:
				holders, err = ClassifyHolders(ledger)
			case PassLiquidity:
				liquidity, err = ScoreLiquidity(ledger)
			case PassMarketImpact:
				impact, err = AnalyzeMarketImpact(ledger, a.params.WhaleQuantile)
			case PassAnomalies:
				anomalies = DetectAnomalies(ledger, a.params.AnomalyWindow, a.params.AnomalySigma)
			}
			a.observe(pass, start, err)
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			log.WithField("pass", passes[i]).WithError(err).Warn("analysis pass failed")
			return nil, &AnalysisError{Pass: passes[i], Err: err}
		}
	}

	if a.recorder != nil {
		a.recorder.AddTransfersAnalyzed(ledger.Len())
	}
	log.WithFields(logrus.Fields{
		"holders":   len(holders),
		"days":      len(liquidity),
		"whales":    len(impact.WhaleTrades),
		"anomalies": len(anomalies),
	}).Debug("analysis completed")

	return &domain.Bundle{
		HolderStats:    holders,
		Liquidity:      liquidity,
		WhaleTrades:    impact.WhaleTrades,
		PriceImpact:    impact.PriceImpact,
		Anomalies:      anomalies,
		WhaleThreshold: impact.Threshold,
		RowsAnalyzed:   ledger.Len(),
		RowsExcluded:   ledger.Excluded,
	}, nil
}

func (a *Analyzer) observe(pass string, start time.Time, err error) {
	if a.recorder != nil {
		a.recorder.ObservePass(pass, time.Since(start), err)
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
