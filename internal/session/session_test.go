package session_test

import (
	"fmt"
	"testing"

	"github.com/adlens/adlens/internal/category"
	"github.com/adlens/adlens/internal/session"
)

func newTestStore(t *testing.T, opts ...session.Option) *session.Store {
	t.Helper()
	return session.New(category.Campaign, opts...)
}

func TestSetAndGetCredential(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.Credential(); ok {
		t.Fatal("new store should have no credential")
	}

	if err := s.SetCredential("tok-123"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}
	got, ok := s.Credential()
	if !ok || got != "tok-123" {
		t.Errorf("Credential() = %q, %v, want %q, true", got, ok, "tok-123")
	}
}

func TestSetCredential_RejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetCredential(""); err == nil {
		t.Error("SetCredential(\"\") should fail")
	}
}

func TestClearCredential_WipesHistory(t *testing.T) {
	s := newTestStore(t)
	s.SetCredential("tok")
	s.RecordSuccess("q1", category.Campaign, "analysis one")
	s.RecordSuccess("q2", category.Creative, "analysis two")

	s.ClearCredential()

	if _, ok := s.Credential(); ok {
		t.Error("credential should be cleared")
	}
	if _, ok := s.Current(); ok {
		t.Error("current record should be cleared")
	}
	if got := len(s.History()); got != 0 {
		t.Errorf("History() length = %d, want 0", got)
	}
}

func TestRecordSuccess_CapsHistoryAtTen(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 11; i++ {
		s.RecordSuccess(fmt.Sprintf("query %d", i), category.Campaign, fmt.Sprintf("analysis %d", i))
	}

	hist := s.History()
	if len(hist) != 10 {
		t.Fatalf("History() length = %d, want 10", len(hist))
	}
	if hist[0].Query != "query 11" {
		t.Errorf("History()[0].Query = %q, want %q (newest at head)", hist[0].Query, "query 11")
	}
	for _, rec := range hist {
		if rec.Query == "query 1" {
			t.Error("oldest record should have been evicted")
		}
	}

	cur, ok := s.Current()
	if !ok || cur.Query != "query 11" {
		t.Errorf("Current().Query = %q, want %q", cur.Query, "query 11")
	}
}

func TestRecordSuccess_UniqueIDs(t *testing.T) {
	s := newTestStore(t)
	a := s.RecordSuccess("q1", category.Campaign, "one")
	b := s.RecordSuccess("q2", category.Campaign, "two")
	if a.ID == b.ID {
		t.Errorf("record IDs must be unique, both %q", a.ID)
	}
}

func TestSelectFromHistory(t *testing.T) {
	s := newTestStore(t)
	first := s.RecordSuccess("q1", category.Campaign, "one")
	s.RecordSuccess("q2", category.Creative, "two")

	got, err := s.SelectFromHistory(first.ID)
	if err != nil {
		t.Fatalf("SelectFromHistory() error = %v", err)
	}
	if got.Query != "q1" {
		t.Errorf("SelectFromHistory().Query = %q, want %q", got.Query, "q1")
	}

	cur, ok := s.Current()
	if !ok || cur.ID != first.ID {
		t.Error("selected record should become current")
	}

	// History order must not change.
	hist := s.History()
	if hist[0].Query != "q2" || hist[1].Query != "q1" {
		t.Errorf("history order changed: got %q, %q", hist[0].Query, hist[1].Query)
	}
}

func TestSelectFromHistory_NotFound(t *testing.T) {
	s := newTestStore(t)
	s.RecordSuccess("q1", category.Campaign, "one")

	if _, err := s.SelectFromHistory("nonexistent"); err == nil {
		t.Error("SelectFromHistory() with unknown id should fail")
	}
}

func TestCategorySwitching(t *testing.T) {
	s := newTestStore(t)
	if got := s.Category(); got != category.Campaign {
		t.Errorf("Category() = %q, want %q", got, category.Campaign)
	}
	s.SetCategory(category.SiteApp)
	if got := s.Category(); got != category.SiteApp {
		t.Errorf("Category() = %q, want %q", got, category.SiteApp)
	}
}

func TestHistoryCapOption(t *testing.T) {
	s := newTestStore(t, session.WithHistoryCap(3))
	for i := 0; i < 5; i++ {
		s.RecordSuccess(fmt.Sprintf("q%d", i), category.Campaign, "x")
	}
	if got := len(s.History()); got != 3 {
		t.Errorf("History() length = %d, want 3", got)
	}
}

func TestCredentialPersistence(t *testing.T) {
	dir := t.TempDir()

	s := newTestStore(t, session.WithDataDir(dir))
	if err := s.SetCredential("durable-token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	// A fresh store over the same dir sees the saved token.
	s2 := newTestStore(t, session.WithDataDir(dir))
	got, ok := s2.Credential()
	if !ok || got != "durable-token" {
		t.Errorf("reloaded Credential() = %q, %v, want %q, true", got, ok, "durable-token")
	}

	// Clearing removes the file as well.
	s2.ClearCredential()
	s3 := newTestStore(t, session.WithDataDir(dir))
	if _, ok := s3.Credential(); ok {
		t.Error("credential should not survive ClearCredential")
	}
}

func TestRecordPreview(t *testing.T) {
	rec := session.Record{Analysis: "short"}
	if got := rec.Preview(150); got != "short" {
		t.Errorf("Preview() = %q, want %q", got, "short")
	}

	long := session.Record{Analysis: "aaaaaaaaaa"}
	if got := long.Preview(4); got != "aaaa..." {
		t.Errorf("Preview() = %q, want %q", got, "aaaa...")
	}
}
