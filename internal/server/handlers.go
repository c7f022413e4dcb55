package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/dashboard"
	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/observability"
)

// TransferSource loads the ledger served by the API.
type TransferSource interface {
	GetAll(ctx context.Context) ([]*domain.Transfer, error)
	Count(ctx context.Context) (int, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Source    TransferSource
	Analyzer  *analytics.Analyzer
	Dashboard *dashboard.Builder
	Metrics   *observability.Metrics // optional
	Logger    logrus.FieldLogger
	DevMode   bool
	Timeout   time.Duration // per-request load timeout, default 10s
	Now       func() time.Time
}

// err returns a standardized JSON error response.
// Details are included for client errors, and for server errors only in dev mode.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if details != nil && (code < http.StatusInternalServerError || h.DevMode) {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Health reports liveness and the number of stored transfers.
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	n, err := h.Source.Count(ctx)
	if err != nil {
		return h.err(c, http.StatusServiceUnavailable, "transfer store unavailable", err.Error())
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Transfers: n})
}

// Summary returns every dashboard view for the requested filter.
func (h *Handlers) Summary(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid filter", err.Error())
	}

	transfers, err := h.load(c)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to load transfers", err.Error())
	}

	summary, err := h.Dashboard.Build(transfers, filter)
	if err != nil {
		return h.err(c, statusFor(err), "failed to build summary", err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// Analysis runs the analysis passes over the filtered ledger and returns the bundle.
func (h *Handlers) Analysis(c echo.Context) error {
	resp, err := h.analyze(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// AnalysisPart returns a single table of the analysis bundle.
func (h *Handlers) AnalysisPart(c echo.Context) error {
	name := strings.ToLower(strings.TrimSpace(c.Param("part")))
	if !validPart(name) {
		return h.err(c, http.StatusNotFound, "unknown analysis part",
			map[string]any{"part": name, "valid": domain.BundleParts})
	}

	resp, err := h.analyze(c)
	if err != nil {
		return h.fail(c, err)
	}
	items, _ := resp.part(name)
	return c.JSON(http.StatusOK, PartResponse{Part: name, Items: items})
}

// requestError is a failure that maps to a JSON error response.
type requestError struct {
	Code    int
	Message string
	Details any
	Err     error
}

func (e *requestError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *requestError) Unwrap() error { return e.Err }

// fail writes err as an ErrorResponse. Errors that are not *requestError go
// to the echo error handler.
func (h *Handlers) fail(c echo.Context, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return h.err(c, re.Code, re.Message, re.Details)
	}
	return err
}

// analyze loads, filters and analyzes the ledger. It never writes the response.
func (h *Handlers) analyze(c echo.Context) (*AnalysisResponse, error) {
	filter, err := parseFilter(c)
	if err == nil {
		err = filter.Validate()
	}
	if err != nil {
		return nil, &requestError{Code: http.StatusBadRequest, Message: "invalid filter", Details: err.Error(), Err: err}
	}

	transfers, err := h.load(c)
	if err != nil {
		return nil, &requestError{Code: http.StatusInternalServerError, Message: "failed to load transfers", Details: err.Error(), Err: err}
	}
	selected := filter.Apply(transfers, h.now())

	bundle, err := h.Analyzer.AnalyzeTransfers(c.Request().Context(), selected)
	if err != nil {
		h.logger().WithError(err).WithField("kind", analytics.ErrorKind(err)).Warn("analysis failed")
		return nil, &requestError{Code: statusFor(err), Message: err.Error(), Details: analysisDetails(err), Err: err}
	}

	resp := toAnalysisResponse(bundle, h.Analyzer.Params())
	return &resp, nil
}

func (h *Handlers) load(c echo.Context) ([]*domain.Transfer, error) {
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	return h.Source.GetAll(ctx)
}

func (h *Handlers) logger() logrus.FieldLogger {
	if h.Logger != nil {
		return h.Logger.WithField("component", "server")
	}
	return logrus.StandardLogger().WithField("component", "server")
}

// RequestLogger logs each request and records it in metrics.
func (h *Handlers) RequestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		if h.Metrics != nil {
			h.Metrics.RecordHTTPRequest(route, status)
		}
		h.logger().WithFields(logrus.Fields{
			"method":   c.Request().Method,
			"route":    route,
			"status":   status,
			"duration": time.Since(start).String(),
		}).Debug("request served")
		return nil
	}
}

// parseFilter reads period, start, end and size query parameters.
func parseFilter(c echo.Context) (dashboard.Filter, error) {
	var f dashboard.Filter

	period, err := dashboard.ParsePeriod(c.QueryParam("period"))
	if err != nil {
		return f, err
	}
	f.Period = period

	if s := c.QueryParam("start"); s != "" {
		if f.Start, err = time.Parse(domain.DateLayout, s); err != nil {
			return f, &echo.HTTPError{Code: http.StatusBadRequest, Message: "start must be YYYY-MM-DD"}
		}
	}
	if s := c.QueryParam("end"); s != "" {
		if f.End, err = time.Parse(domain.DateLayout, s); err != nil {
			return f, &echo.HTTPError{Code: http.StatusBadRequest, Message: "end must be YYYY-MM-DD"}
		}
	}
	if (!f.Start.IsZero() || !f.End.IsZero()) && f.Period == dashboard.PeriodAll && c.QueryParam("period") == "" {
		f.Period = dashboard.PeriodCustom
	}

	if f.Sizes, err = dashboard.ParseSizes(c.QueryParam("size")); err != nil {
		return f, err
	}
	return f, nil
}

func validPart(name string) bool {
	for _, p := range domain.BundleParts {
		if p == name {
			return true
		}
	}
	return false
}
