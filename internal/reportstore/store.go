// Package reportstore archives diagnosed constraint failures as JSON
// reports in an object store.
//
// All backends (MinIO, in-memory) implement the Store interface.
// Callers depend only on this package, never on a specific backend.
//
// Usage:
//
//	store, err := minio.New(ctx, reportstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin"))
//	if err != nil { ... }
//	defer store.Close()
//
//	guard := fkcheck.NewGuard(db, fkcheck.WithArchiver(reportstore.NewArchiver(store)))
package reportstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/fkcheck"
)

// Store is the single interface all report backends implement.
type Store interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// Put writes r and returns the key it was stored under.
	Put(ctx context.Context, r *Report) (string, error)

	// Get reads the report stored under key.
	Get(ctx context.Context, key string) (*Report, error)

	// List returns up to limit keys starting with prefix, in key order.
	// A limit of 0 means no limit.
	List(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Report is the archived form of one diagnosed failure.
type Report struct {
	ID          string               `json:"id"`
	CreatedAt   time.Time            `json:"created_at"`
	Statement   string               `json:"statement"`
	Kind        string               `json:"kind"`
	Table       string               `json:"table,omitempty"`
	Violations  []fkcheck.Violation  `json:"violations"`
	ForeignKeys []fkcheck.ForeignKey `json:"foreign_keys,omitempty"`
	Message     string               `json:"message,omitempty"`
	Cause       string               `json:"cause,omitempty"`
}

// NewReport builds a report for d with a fresh ID.
func NewReport(d *fkcheck.Diagnosis, cause error, now time.Time) *Report {
	r := &Report{
		ID:          uuid.NewString(),
		CreatedAt:   now.UTC(),
		Statement:   d.Statement,
		Kind:        d.Kind.String(),
		Table:       d.Table,
		Violations:  d.Violations,
		ForeignKeys: d.ForeignKeys,
		Message:     d.Message(),
	}
	if cause != nil {
		r.Cause = cause.Error()
	}
	return r
}

// Key is the object key of r: reports/YYYY/MM/DD/<id>.json.
func (r *Report) Key() string {
	return fmt.Sprintf("reports/%s/%s.json", r.CreatedAt.UTC().Format("2006/01/02"), r.ID)
}

// Validate rejects reports that cannot be keyed.
func (r *Report) Validate() error {
	if r == nil {
		return errs.New(errs.ErrKindInvalidInput, "report is nil")
	}
	if r.ID == "" {
		return errs.New(errs.ErrKindInvalidInput, "report has no id")
	}
	if r.CreatedAt.IsZero() {
		return errs.New(errs.ErrKindInvalidInput, "report has no creation time")
	}
	return nil
}

// Archiver adapts a Store to fkcheck.Archiver.
type Archiver struct {
	store Store
	now   func() time.Time
}

// NewArchiver returns an Archiver writing to store.
func NewArchiver(store Store) *Archiver {
	return &Archiver{store: store, now: time.Now}
}

func (a *Archiver) Archive(ctx context.Context, d *fkcheck.Diagnosis, cause error) (string, error) {
	return a.store.Put(ctx, NewReport(d, cause, a.now()))
}

var _ fkcheck.Archiver = (*Archiver)(nil)

// Memory keeps reports in process. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]Report
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]Report)}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) Put(_ context.Context, r *Report) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	key := r.Key()
	m.mu.Lock()
	m.reports[key] = *r
	m.mu.Unlock()
	return key, nil
}

func (m *Memory) Get(_ context.Context, key string) (*Report, error) {
	m.mu.RLock()
	r, ok := m.reports[key]
	m.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("report %q not found", key))
	}
	return &r, nil
}

func (m *Memory) List(_ context.Context, prefix string, limit int) ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.reports))
	for k := range m.reports {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

var _ Store = (*Memory)(nil)
