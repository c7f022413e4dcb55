// Package pipeline runs the offline analysis: load the ledger, check data
// sufficiency, analyze, and write the report, per-table CSVs and a manifest.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/reporting"
	"cryptopunks-analysis/internal/storage"
)

// GeneratorVersion identifies the report format.
const GeneratorVersion = "1.0.0"

// Output file names.
const (
	ReportFile   = "ANALYSIS_REPORT.md"
	ManifestFile = "manifest.json"
)

// RunRecorder receives pipeline outcomes. Implemented by observability.Metrics.
type RunRecorder interface {
	RecordPipelineRun(err error)
}

// Pipeline orchestrates load, sufficiency check, analysis and export.
type Pipeline struct {
	store              storage.TransferStore
	reportGen          *reporting.Generator
	sufficiencyChecker *SufficiencyChecker
	outputDir          string
	clock              func() time.Time
	dataSource         string // "fixtures", "csv", "postgres" or "clickhouse"
	replayCommand      string
	logger             logrus.FieldLogger
	recorder           RunRecorder
}

// Result describes a completed run.
type Result struct {
	Report   *reporting.Report
	Manifest *Manifest
}

// Manifest lists the files written by a run with their checksums.
type Manifest struct {
	GeneratedAt      time.Time       `json:"generated_at"`
	GeneratorVersion string          `json:"generator_version"`
	DataVersion      string          `json:"data_version"`
	Source           string          `json:"source"`
	Files            []ManifestEntry `json:"files"`
}

// ManifestEntry is one output file.
type ManifestEntry struct {
	Name   string `json:"name"`
	Bytes  int    `json:"bytes"`
	SHA256 string `json:"sha256"`
}

// New creates a pipeline reading from store and writing to outputDir.
// Sufficiency thresholds default to DefaultThresholds for the analyzer's window.
func New(store storage.TransferStore, analyzer *analytics.Analyzer, outputDir string) *Pipeline {
	clock := func() time.Time { return time.Now().UTC() }
	return &Pipeline{
		store:              store,
		reportGen:          reporting.NewGenerator(analyzer).WithClock(clock),
		sufficiencyChecker: NewSufficiencyChecker(DefaultThresholds(analyzer.Params().AnomalyWindow)),
		outputDir:          outputDir,
		clock:              clock,
		logger:             discardLogger(),
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithThresholds replaces the sufficiency thresholds.
func (p *Pipeline) WithThresholds(t Thresholds) *Pipeline {
	p.sufficiencyChecker = NewSufficiencyChecker(t)
	return p
}

// WithDataSource sets the data source for reproducibility metadata.
func (p *Pipeline) WithDataSource(source string) *Pipeline {
	p.dataSource = source
	return p
}

// WithReplayCommand overrides the command recorded to reproduce the report.
func (p *Pipeline) WithReplayCommand(cmd string) *Pipeline {
	p.replayCommand = cmd
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(logger logrus.FieldLogger) *Pipeline {
	p.logger = logger
	return p
}

// WithRecorder sets the metrics recorder.
func (p *Pipeline) WithRecorder(r RunRecorder) *Pipeline {
	p.recorder = r
	return p
}

// Run executes the full pipeline and writes output files:
// - ANALYSIS_REPORT.md
// - holder_stats.csv, liquidity.csv, whale_trades.csv, price_impact.csv, anomalies.csv
// - manifest.json
//
// When the analysis itself fails, ANALYSIS_REPORT.md is still written with
// the data quality section and the failure, and the error is returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res, err := p.run(ctx)
	if p.recorder != nil {
		p.recorder.RecordPipelineRun(err)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	log := p.logger.WithFields(logrus.Fields{"component": "pipeline", "source": p.dataSource})

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, err
	}

	// 1. Load ledger
	transfers, err := p.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load) failed: %w", err)
	}
	log.WithField("transfers", len(transfers)).Info("ledger loaded")

	// 2. Sufficiency checks
	suffResult := p.sufficiencyChecker.Check(transfers)
	dataQuality := convertToDataQuality(suffResult)
	if !dataQuality.AllChecksPassed {
		log.WithField("errors", len(suffResult.Errors)).Warn("data sufficiency checks failed")
	}

	dataVersion := computeDataVersion(transfers)

	// 3. Analyze
	report, err := p.reportGen.Generate(ctx, transfers)
	if err != nil {
		var ae *analytics.AnalysisError
		if !errors.As(err, &ae) {
			return nil, fmt.Errorf("phase 3 (analyze) failed: %w", err)
		}
		failed := p.reportGen.Empty()
		failed.DataQuality = dataQuality
		failed.DataQuality.IntegrityErrors = append(failed.DataQuality.IntegrityErrors, err.Error())
		failed.DataQuality.AllChecksPassed = false
		p.populate(failed, dataVersion)
		if werr := p.writeFile(ReportFile, []byte(reporting.RenderMarkdown(failed))); werr != nil {
			return nil, werr
		}
		return nil, fmt.Errorf("phase 3 (analyze) failed: %w", err)
	}
	report.DataQuality = dataQuality
	p.populate(report, dataVersion)

	// 4. Export
	manifest := &Manifest{
		GeneratedAt:      report.GeneratedAt,
		GeneratorVersion: GeneratorVersion,
		DataVersion:      dataVersion,
		Source:           p.dataSource,
	}

	reportMD := []byte(reporting.RenderMarkdown(report))
	if err := p.writeFile(ReportFile, reportMD); err != nil {
		return nil, fmt.Errorf("phase 4 (export) failed: %w", err)
	}
	manifest.add(ReportFile, reportMD)

	for _, part := range domain.BundleParts {
		csv, err := reporting.RenderCSV(part, report.Bundle)
		if err != nil {
			return nil, fmt.Errorf("phase 4 (export) failed: %w", err)
		}
		name := reporting.CSVFileName(part)
		if err := p.writeFile(name, []byte(csv)); err != nil {
			return nil, fmt.Errorf("phase 4 (export) failed: %w", err)
		}
		manifest.add(name, []byte(csv))
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := p.writeFile(ManifestFile, append(manifestJSON, '\n')); err != nil {
		return nil, fmt.Errorf("phase 4 (export) failed: %w", err)
	}

	log.WithFields(logrus.Fields{
		"data_version": dataVersion,
		"files":        len(manifest.Files) + 1,
		"anomalies":    len(report.Bundle.Anomalies),
	}).Info("report written")

	return &Result{Report: report, Manifest: manifest}, nil
}

// populate fills in source and reproducibility metadata.
func (p *Pipeline) populate(report *reporting.Report, dataVersion string) {
	report.Source = p.dataSource
	report.Reproducibility = reporting.ReproducibilityMetadata{
		ReportTimestamp:  p.clock(),
		GeneratorVersion: GeneratorVersion,
		DataVersion:      dataVersion,
		CommitHash:       getGitCommitHash(),
		ReplayCommand:    p.buildReplayCommand(),
	}
}

func (p *Pipeline) writeFile(name string, data []byte) error {
	return os.WriteFile(filepath.Join(p.outputDir, name), data, 0644)
}

func (m *Manifest) add(name string, data []byte) {
	sum := sha256.Sum256(data)
	m.Files = append(m.Files, ManifestEntry{
		Name:   name,
		Bytes:  len(data),
		SHA256: hex.EncodeToString(sum[:]),
	})
}

// buildReplayCommand returns the command to reproduce this report.
func (p *Pipeline) buildReplayCommand() string {
	if p.replayCommand != "" {
		return p.replayCommand
	}
	switch p.dataSource {
	case "", "fixtures":
		return "go run ./cmd/analyze --use-fixtures"
	default:
		return fmt.Sprintf("go run ./cmd/analyze --source %s", p.dataSource)
	}
}

// computeDataVersion computes SHA256 hash of the ledger for reproducibility.
// Rows are hashed in key order so the version does not depend on load order.
func computeDataVersion(transfers []*domain.Transfer) string {
	parts := make([]string, 0, len(transfers))
	for _, t := range transfers {
		if t == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s|%d|%d|%s|%s|%.9f",
			t.TxHash, t.EventIndex, t.Timestamp.UnixMilli(), t.Sender, t.Receiver, t.Value))
	}
	sort.Strings(parts)

	h := sha256.New()
	h.Write([]byte("TRANSFERS\n"))
	h.Write([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(h.Sum(nil))[:12] // short hash
}

// getGitCommitHash returns current git commit hash or "unknown" if not in git repo.
func getGitCommitHash() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out.String())
}

// convertToDataQuality converts SufficiencyResult to reporting.DataQualitySection.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	checks := make([]reporting.SufficiencyCheckRow, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return reporting.DataQualitySection{
		SufficiencyChecks: checks,
		IntegrityErrors:   result.Errors,
		AllChecksPassed:   result.AllPass,
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
