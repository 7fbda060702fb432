// Package health probes the liveness of the report services and
// aggregates per-category status into one overall status.
//
// Probe failures are states, not faults: a failed probe marks its
// category offline and is absorbed into the status map, never raised
// to the caller.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adlens/adlens/internal/category"
)

// Status is the liveness state of one report service.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusChecking Status = "checking"
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
)

// Prober issues a single liveness check against one service.
type Prober struct {
	baseURL string
	single  bool
	httpc   *http.Client
	tracer  trace.Tracer
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithTimeout overrides the default 10s probe timeout.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.httpc.Timeout = d
		}
	}
}

// WithSingleEndpoint targets the legacy /api/health variant.
func WithSingleEndpoint(single bool) ProberOption {
	return func(p *Prober) { p.single = single }
}

// WithHTTPClient swaps the underlying transport (tests).
func WithHTTPClient(h *http.Client) ProberOption {
	return func(p *Prober) { p.httpc = h }
}

// NewProber creates a prober for the services rooted at baseURL.
func NewProber(baseURL string, opts ...ProberOption) *Prober {
	p := &Prober{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		tracer:  otel.Tracer("adlens/health"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe checks one category's service. Any non-2xx response or
// transport error is offline.
func (p *Prober) Probe(ctx context.Context, cat category.Category) Status {
	ctx, span := p.tracer.Start(ctx, "health.probe",
		trace.WithAttributes(attribute.String("report.category", string(cat))))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL(cat), nil)
	if err != nil {
		return StatusOffline
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("category", string(cat)).Msg("health probe failed")
		span.RecordError(err)
		return StatusOffline
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("category", string(cat)).Msg("health probe rejected")
		return StatusOffline
	}
	return StatusOnline
}

func (p *Prober) healthURL(cat category.Category) string {
	if p.single {
		return p.baseURL + "/api/health"
	}
	return p.baseURL + "/api/" + cat.PathSegment() + "/health"
}

// Aggregator tracks per-category status and derives the overall one.
// Statuses transition unknown → checking → online|offline and re-enter
// checking on every re-probe.
type Aggregator struct {
	prober     *Prober
	categories []category.Category

	mu       sync.RWMutex
	statuses map[category.Category]Status

	// OnChange, if set, fires for every per-category transition.
	OnChange func(cat category.Category, old, new Status)
}

// NewAggregator creates an aggregator with all categories unknown.
func NewAggregator(p *Prober, cats []category.Category) *Aggregator {
	statuses := make(map[category.Category]Status, len(cats))
	for _, c := range cats {
		statuses[c] = StatusUnknown
	}
	return &Aggregator{
		prober:     p,
		categories: cats,
		statuses:   statuses,
	}
}

// Statuses returns a copy of the per-category status map.
func (a *Aggregator) Statuses() map[category.Category]Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[category.Category]Status, len(a.statuses))
	for c, s := range a.statuses {
		out[c] = s
	}
	return out
}

// Overall derives the aggregate status: online iff every category is
// online, offline iff none is, checking (degraded) otherwise. It is
// recomputed from the live map on every call, never cached.
func (a *Aggregator) Overall() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return overall(a.statuses)
}

func overall(statuses map[category.Category]Status) Status {
	if len(statuses) == 0 {
		return StatusUnknown
	}
	online := 0
	for _, s := range statuses {
		if s == StatusOnline {
			online++
		}
	}
	switch online {
	case len(statuses):
		return StatusOnline
	case 0:
		return StatusOffline
	default:
		return StatusChecking
	}
}

// ProbeAll probes every category concurrently and waits for all
// outcomes. Total latency tracks the slowest probe, not the sum, and a
// slow or failed probe never blocks or corrupts the others.
func (a *Aggregator) ProbeAll(ctx context.Context) (map[category.Category]Status, Status) {
	for _, c := range a.categories {
		a.setStatus(c, StatusChecking)
	}

	var wg sync.WaitGroup
	for _, c := range a.categories {
		wg.Add(1)
		go func(cat category.Category) {
			defer wg.Done()
			a.setStatus(cat, a.prober.Probe(ctx, cat))
		}(c)
	}
	wg.Wait()

	snapshot := a.Statuses()
	agg := overall(snapshot)
	log.Info().Interface("statuses", snapshot).Str("overall", string(agg)).Msg("health probes settled")
	return snapshot, agg
}

func (a *Aggregator) setStatus(cat category.Category, next Status) {
	a.mu.Lock()
	prev := a.statuses[cat]
	a.statuses[cat] = next
	a.mu.Unlock()

	if prev != next && a.OnChange != nil {
		a.OnChange(cat, prev, next)
	}
}
