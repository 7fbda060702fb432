// Package session holds the process-wide client state: the bearer
// credential, the active report category, the current analysis record,
// and a bounded most-recent-first history of past analyses.
//
// History lives in memory only. The credential is the one durable
// datum: it is mirrored to a file under the data dir so it survives
// restarts, and removed when the user signs out.
package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adlens/adlens/internal/category"
)

// credentialFile is the single durable key holding the bearer token.
const credentialFile = "credential"

// Record is one completed analysis. Records are immutable after
// creation; the store only ever copies them out.
type Record struct {
	ID        string            `json:"id"`
	Query     string            `json:"query"`
	Category  category.Category `json:"category"`
	Analysis  string            `json:"analysis"`
	CreatedAt time.Time         `json:"created_at"`
}

// Preview returns the first n characters of the analysis text, for
// history listings.
func (r Record) Preview(n int) string {
	runes := []rune(r.Analysis)
	if len(runes) <= n {
		return r.Analysis
	}
	return string(runes[:n]) + "..."
}

// ErrNotFound is returned when a requested history entry does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// Store is the session/history store. All mutation goes through its
// methods; callers receive copies, never internal pointers.
type Store struct {
	mu         sync.RWMutex
	credential string
	category   category.Category
	current    *Record
	history    []Record
	cap        int

	credPath string // empty = no durable credential slot
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryCap overrides the default history capacity of 10.
func WithHistoryCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithDataDir enables the durable credential slot under dir. The dir is
// created if missing; on failure the slot is disabled and the session
// is memory-only.
func WithDataDir(dir string) Option {
	return func(s *Store) {
		if dir == "" {
			return
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Cannot create data dir, credential persistence disabled")
			return
		}
		s.credPath = filepath.Join(dir, credentialFile)
	}
}

// New creates a session store and, when a data dir is configured, loads
// any previously saved credential.
func New(initial category.Category, opts ...Option) *Store {
	s := &Store{
		category: initial,
		cap:      10,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.credPath != "" {
		s.loadCredential()
	}
	return s
}

// Credential returns the stored bearer token, if any.
func (s *Store) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, s.credential != ""
}

// SetCredential stores a non-empty bearer token and mirrors it to the
// durable slot.
func (s *Store) SetCredential(token string) error {
	if token == "" {
		return &ErrNotFound{Entity: "credential", Key: "(empty)"}
	}

	s.mu.Lock()
	s.credential = token
	s.mu.Unlock()

	s.saveCredential(token)
	return nil
}

// ClearCredential removes the stored token and, because prior results
// may be scoped to the old identity, wipes the current record and the
// whole history.
func (s *Store) ClearCredential() {
	s.mu.Lock()
	s.credential = ""
	s.current = nil
	s.history = nil
	s.mu.Unlock()

	if s.credPath != "" {
		if err := os.Remove(s.credPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.credPath).Msg("Failed to remove credential file")
		}
	}
}

// Category returns the active report category.
func (s *Store) Category() category.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category
}

// SetCategory switches the active report category for future requests.
func (s *Store) SetCategory(c category.Category) {
	s.mu.Lock()
	s.category = c
	s.mu.Unlock()
}

// Current returns a copy of the current analysis record.
func (s *Store) Current() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Record{}, false
	}
	return *s.current, true
}

// RecordSuccess mints a new record for a successful analysis, prepends
// it to the history (evicting the oldest entry at capacity), and makes
// it current.
func (s *Store) RecordSuccess(query string, cat category.Category, analysis string) Record {
	rec := Record{
		ID:        uuid.New().String(),
		Query:     query,
		Category:  cat,
		Analysis:  analysis,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.history = append([]Record{rec}, s.history...)
	if len(s.history) > s.cap {
		s.history = s.history[:s.cap]
	}
	s.current = &rec
	s.mu.Unlock()

	return rec
}

// SelectFromHistory promotes a retained history entry to current
// without changing history order.
func (s *Store) SelectFromHistory(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.history {
		if rec.ID == id {
			r := rec
			s.current = &r
			return rec, nil
		}
	}
	return Record{}, &ErrNotFound{Entity: "analysis record", Key: id}
}

// History returns a copy of the history, most recent first.
func (s *Store) History() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.history))
	copy(out, s.history)
	return out
}

// ── Durable credential slot ─────────────────────────────────

// saveCredential writes the token to a temp file then renames it into
// place for atomicity.
func (s *Store) saveCredential(token string) {
	if s.credPath == "" {
		return
	}
	tmp := s.credPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		log.Warn().Err(err).Str("path", tmp).Msg("Failed to write credential tmp")
		return
	}
	if err := os.Rename(tmp, s.credPath); err != nil {
		log.Warn().Err(err).Str("path", s.credPath).Msg("Failed to rename credential file")
		return
	}
	log.Debug().Str("path", s.credPath).Msg("Credential saved")
}

// loadCredential reads the token from disk on startup.
func (s *Store) loadCredential() {
	data, err := os.ReadFile(s.credPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.credPath).Msg("Failed to read credential file")
		}
		return
	}
	if len(data) == 0 {
		return
	}
	s.credential = string(data)
	log.Info().Str("path", s.credPath).Msg("Credential loaded")
}
