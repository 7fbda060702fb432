package report_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adlens/adlens/internal/category"
	"github.com/adlens/adlens/internal/report"
)

// newBackend starts a stub analysis service and returns it with a
// request counter.
func newBackend(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAnalyze_Success(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/api/campaign/analyze" {
			t.Errorf("path = %q, want /api/campaign/analyze", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
		}

		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body.Query != "campaign: demo last week" {
			t.Errorf("query = %q", body.Query)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"analysis": "Impressions: 1,000",
		})
	})

	c := report.NewClient(srv.URL)
	got, err := c.Analyze(context.Background(), "tok-1", category.Campaign, "campaign: demo last week")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got != "Impressions: 1,000" {
		t.Errorf("Analyze() = %q", got)
	}
}

func TestAnalyze_NoCredential_NoNetworkCall(t *testing.T) {
	srv, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})

	c := report.NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), "", category.Campaign, "query")
	if !errors.Is(err, report.ErrNoCredential) {
		t.Fatalf("Analyze() error = %v, want ErrNoCredential", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("backend received %d calls, want 0", n)
	}
}

func TestAnalyze_WithoutAuthOption(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "analysis": "ok"})
	})

	c := report.NewClient(srv.URL, report.WithoutAuth())
	if _, err := c.Analyze(context.Background(), "", category.Campaign, "q"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
}

func TestAnalyze_SingleEndpointVariant(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze" {
			t.Errorf("path = %q, want /api/analyze", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "analysis": "ok"})
	})

	c := report.NewClient(srv.URL, report.WithSingleEndpoint(true))
	if _, err := c.Analyze(context.Background(), "tok", category.Campaign, "q"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
}

func TestAnalyze_NonSuccessStatus(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"error": "upstream down"})
	})

	c := report.NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), "tok", category.Creative, "q")

	var statusErr *report.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Analyze() error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusBadGateway {
		t.Errorf("StatusError.Code = %d, want %d", statusErr.Code, http.StatusBadGateway)
	}
	if statusErr.Message != "upstream down" {
		t.Errorf("StatusError.Message = %q, want %q", statusErr.Message, "upstream down")
	}
}

func TestAnalyze_ExplicitErrorWinsOverSuccessFlag(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"analysis": "ignored",
			"error":    "quota exceeded",
		})
	})

	c := report.NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), "tok", category.Campaign, "q")

	var rejected *report.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Analyze() error = %v, want *RejectedError", err)
	}
	if rejected.Message != "quota exceeded" {
		t.Errorf("RejectedError.Message = %q, want %q", rejected.Message, "quota exceeded")
	}
}

func TestAnalyze_SuccessFalse(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	})

	c := report.NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), "tok", category.Campaign, "q")

	var rejected *report.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Analyze() error = %v, want *RejectedError", err)
	}
}

func TestAnalyze_EmptyPayload(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "analysis": ""})
	})

	c := report.NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), "tok", category.Campaign, "q")
	if !errors.Is(err, report.ErrEmptyAnalysis) {
		t.Fatalf("Analyze() error = %v, want ErrEmptyAnalysis", err)
	}
}

func TestAnalyze_TransportFailure(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // connection refused from here on

	c := report.NewClient(srv.URL, report.WithTimeout(2*time.Second))
	_, err := c.Analyze(context.Background(), "tok", category.Campaign, "q")
	if err == nil {
		t.Fatal("Analyze() should fail when the service is unreachable")
	}
	var statusErr *report.StatusError
	var rejected *report.RejectedError
	if errors.As(err, &statusErr) || errors.As(err, &rejected) {
		t.Errorf("transport failure misclassified: %v", err)
	}
}

func TestAnalyze_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		<-block
	})
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := report.NewClient(srv.URL)
	_, err := c.Analyze(ctx, "tok", category.Campaign, "q")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Analyze() error = %v, want context.Canceled in chain", err)
	}
}
