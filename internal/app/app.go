// Package app wires the query-analysis pipeline together: it reads the
// credential and active category from the session store, dispatches the
// query, sanitizes the raw answer, and records the result.
//
// Submissions are serialized — while one is in flight, further submits
// are rejected rather than raced. Failures never touch the session
// store: the prior current result and history survive every failed
// attempt.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/adlens/adlens/internal/category"
	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/health"
	"github.com/adlens/adlens/internal/metrics"
	"github.com/adlens/adlens/internal/report"
	"github.com/adlens/adlens/internal/sanitize"
	"github.com/adlens/adlens/internal/session"
)

// ErrSubmissionPending is returned when a submit arrives while a prior
// one has not settled.
var ErrSubmissionPending = errors.New("a submission is already in flight")

// ErrEmptyQuery is returned for blank queries; nothing is dispatched.
var ErrEmptyQuery = errors.New("query must not be empty")

// App is the orchestration core behind the presentation layer.
type App struct {
	cfg    *config.Config
	store  *session.Store
	client *report.Client
	agg    *health.Aggregator

	mu       sync.Mutex
	inFlight bool
}

// New builds the full pipeline from configuration.
func New(cfg *config.Config) *App {
	clientOpts := []report.Option{
		report.WithTimeout(cfg.RequestTimeout),
		report.WithSingleEndpoint(cfg.SingleEndpoint),
	}
	if !cfg.RequiresAuth {
		clientOpts = append(clientOpts, report.WithoutAuth())
	}

	storeOpts := []session.Option{session.WithHistoryCap(cfg.HistoryCap)}
	if cfg.DataDir != "" {
		storeOpts = append(storeOpts, session.WithDataDir(cfg.DataDir))
	}

	initial := category.Campaign
	if len(cfg.Categories) > 0 {
		initial = cfg.Categories[0]
	}

	prober := health.NewProber(cfg.BaseURL,
		health.WithTimeout(cfg.ProbeTimeout),
		health.WithSingleEndpoint(cfg.SingleEndpoint),
	)

	return &App{
		cfg:    cfg,
		store:  session.New(initial, storeOpts...),
		client: report.NewClient(cfg.BaseURL, clientOpts...),
		agg:    health.NewAggregator(prober, cfg.Categories),
	}
}

// Store exposes the session store for credential and history actions.
func (a *App) Store() *session.Store { return a.store }

// Health exposes the status aggregator for the presentation layer.
func (a *App) Health() *health.Aggregator { return a.agg }

// Submit dispatches one query against the active category. On success
// the sanitized result is recorded and returned; on failure the session
// state is left untouched. A cancelled context is a silent no-op: the
// error is context.Canceled and nothing is recorded or logged as a
// failure.
func (a *App) Submit(ctx context.Context, query string) (session.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return session.Record{}, ErrEmptyQuery
	}

	a.mu.Lock()
	if a.inFlight {
		a.mu.Unlock()
		return session.Record{}, ErrSubmissionPending
	}
	a.inFlight = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inFlight = false
		a.mu.Unlock()
	}()

	credential, _ := a.store.Credential()
	cat := a.store.Category()

	raw, err := a.client.Analyze(ctx, credential, cat, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return session.Record{}, err
		}
		log.Warn().Err(err).Str("category", string(cat)).Msg("analysis failed")
		return session.Record{}, err
	}

	rec := a.store.RecordSuccess(query, cat, sanitize.Clean(raw))
	log.Info().
		Str("id", rec.ID).
		Str("category", string(cat)).
		Int("chars", len(rec.Analysis)).
		Msg("analysis recorded")
	return rec, nil
}

// Metrics extracts the KPI table for a record.
func (a *App) Metrics(rec session.Record) []metrics.Metric {
	return metrics.Extract(rec.Analysis)
}

// RefreshStatus re-probes every configured service.
func (a *App) RefreshStatus(ctx context.Context) (map[category.Category]health.Status, health.Status) {
	return a.agg.ProbeAll(ctx)
}

// UserMessage maps a Submit failure to the single line shown to the
// user. Cancelled submissions map to an empty string: show nothing.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, ErrEmptyQuery):
		return "Please enter a query."
	case errors.Is(err, ErrSubmissionPending):
		return "Please wait for the current analysis to finish."
	case errors.Is(err, report.ErrNoCredential):
		return "Please set your bearer token before submitting a query."
	case errors.Is(err, report.ErrEmptyAnalysis):
		return "The service returned no analysis text."
	}

	var rejected *report.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	var status *report.StatusError
	if errors.As(err, &status) {
		if status.Message != "" {
			return status.Message
		}
		return "The analysis service rejected the request."
	}

	return "An unexpected error occurred."
}
