package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stevemurr/datastore/store"
)

var backends = []store.Backend{
	store.BackendCSV,
	store.BackendJSON,
	store.BackendSQLite,
	store.BackendMemory,
}

// newTestStore builds a Store bound to a fresh location for the given
// backend.
func newTestStore(t *testing.T, backend store.Backend) *store.Store {
	t.Helper()
	cfg := testConfig(t, backend)
	s, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testConfig(t *testing.T, backend store.Backend) store.Config {
	t.Helper()
	cfg := store.Config{Backend: backend}
	switch backend {
	case store.BackendCSV:
		cfg.Location = filepath.Join(t.TempDir(), "data.csv")
	case store.BackendJSON:
		cfg.Location = filepath.Join(t.TempDir(), "data.json")
	case store.BackendSQLite:
		cfg.Location = filepath.Join(t.TempDir(), "data.db")
	}
	return cfg
}

// runProviderTests runs the common contract suite against one backend.
// Values are strings throughout so every backend round-trips them
// unchanged.
func runProviderTests(t *testing.T, backend store.Backend) {
	t.Helper()

	t.Run("get before any save", func(t *testing.T) {
		s := newTestStore(t, backend)
		recs, err := s.GetData(nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 0 {
			t.Fatalf("expected 0 records, got %d", len(recs))
		}
	})

	t.Run("round trip", func(t *testing.T) {
		s := newTestStore(t, backend)
		in := store.RecordSet{
			{"id": "1", "name": "alpha"},
			{"id": "2", "name": "beta"},
			{"id": "3", "name": "gamma"},
		}
		n, err := s.SaveData(in)
		if err != nil {
			t.Fatal(err)
		}
		if n != 3 {
			t.Fatalf("expected 3 written, got %d", n)
		}
		out, err := s.GetData(nil)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("save empty set", func(t *testing.T) {
		s := newTestStore(t, backend)
		_, err := s.SaveData(store.RecordSet{})
		if !store.IsKind(err, store.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("filter", func(t *testing.T) {
		s := newTestStore(t, backend)
		in := store.RecordSet{
			{"id": "1", "name": "alpha"},
			{"id": "2", "name": "beta"},
			{"id": "3", "name": "alpha"},
		}
		if _, err := s.SaveData(in); err != nil {
			t.Fatal(err)
		}
		out, err := s.GetData(&store.Filter{Field: "name", Value: "alpha"})
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 records, got %d", len(out))
		}
		for _, rec := range out {
			if rec["name"] != "alpha" {
				t.Fatalf("filter let through %v", rec)
			}
		}
	})

	t.Run("describe", func(t *testing.T) {
		s := newTestStore(t, backend)
		if _, err := s.SaveData(store.RecordSet{{"id": "1"}, {"id": "2"}}); err != nil {
			t.Fatal(err)
		}
		info, err := s.Describe()
		if err != nil {
			t.Fatal(err)
		}
		if info.Backend != backend {
			t.Fatalf("expected backend %s, got %s", backend, info.Backend)
		}
		if info.Records != 2 {
			t.Fatalf("expected 2 records, got %d", info.Records)
		}
	})

	t.Run("trim oldest", func(t *testing.T) {
		s := newTestStore(t, backend)
		in := store.RecordSet{{"id": "1"}, {"id": "2"}, {"id": "3"}}
		if _, err := s.SaveData(in); err != nil {
			t.Fatal(err)
		}
		remaining, err := s.TrimData(2, true)
		if err != nil {
			t.Fatal(err)
		}
		if remaining != 1 {
			t.Fatalf("expected 1 remaining, got %d", remaining)
		}
		out, err := s.GetData(nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 1 || out[0]["id"] != "3" {
			t.Fatalf("expected only id=3 left, got %v", out)
		}
	})

	t.Run("trim newest", func(t *testing.T) {
		s := newTestStore(t, backend)
		in := store.RecordSet{{"id": "1"}, {"id": "2"}, {"id": "3"}}
		if _, err := s.SaveData(in); err != nil {
			t.Fatal(err)
		}
		remaining, err := s.TrimData(1, false)
		if err != nil {
			t.Fatal(err)
		}
		if remaining != 2 {
			t.Fatalf("expected 2 remaining, got %d", remaining)
		}
		out, err := s.GetData(nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 2 || out[1]["id"] != "2" {
			t.Fatalf("expected ids 1,2 left, got %v", out)
		}
	})

	t.Run("close is idempotent and terminal", func(t *testing.T) {
		s := newTestStore(t, backend)
		if _, err := s.SaveData(store.RecordSet{{"id": "1"}}); err != nil {
			t.Fatal(err)
		}
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("second close should be a no-op, got %v", err)
		}
		if _, err := s.SaveData(store.RecordSet{{"id": "2"}}); !store.IsKind(err, store.KindState) {
			t.Fatalf("expected state error after close, got %v", err)
		}
		if _, err := s.GetData(nil); !store.IsKind(err, store.KindState) {
			t.Fatalf("expected state error after close, got %v", err)
		}
	})

	t.Run("close before first use", func(t *testing.T) {
		s := newTestStore(t, backend)
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := s.GetData(nil); !store.IsKind(err, store.KindState) {
			t.Fatalf("expected state error, got %v", err)
		}
	})
}

func TestProviders(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			runProviderTests(t, backend)
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  store.Config
	}{
		{"no backend", store.Config{}},
		{"unknown backend", store.Config{Backend: "mongodb", Location: "x"}},
		{"csv without location", store.Config{Backend: store.BackendCSV}},
		{"json without location", store.Config{Backend: store.BackendJSON}},
		{"sqlite without location", store.Config{Backend: store.BackendSQLite}},
		{"bad encoding", store.Config{Backend: store.BackendJSON, Location: "x.json", Encoding: "latin-1"}},
		{"bad table name", store.Config{Backend: store.BackendSQLite, Location: "x.db", Table: "records; drop"}},
		{"duplicate field", store.Config{Backend: store.BackendMemory, Fields: []string{"id", "id"}}},
		{"empty field", store.Config{Backend: store.BackendMemory, Fields: []string{""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.New(tc.cfg); !store.IsKind(err, store.KindConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestOpenResolvesNamedTarget(t *testing.T) {
	targets := store.Targets{
		"primary": testConfig(t, store.BackendJSON),
		"archive": testConfig(t, store.BackendCSV),
	}

	s, err := store.Open(targets, "archive")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Backend() != store.BackendCSV {
		t.Fatalf("expected csv backend, got %s", s.Backend())
	}

	if _, err := store.Open(targets, "offsite"); !store.IsKind(err, store.KindConfiguration) {
		t.Fatalf("expected configuration error for unknown target, got %v", err)
	}
}

func TestSaveEmptySetPerformsNoIO(t *testing.T) {
	dir := t.TempDir()
	loc := filepath.Join(dir, "sub", "data.csv")
	s, err := store.New(store.Config{Backend: store.BackendCSV, Location: loc})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.SaveData(nil); !store.IsKind(err, store.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// The rejected call must not have connected: no directory, no file.
	if _, err := os.Stat(filepath.Join(dir, "sub")); !os.IsNotExist(err) {
		t.Fatal("empty save touched the medium")
	}
}

func TestErrorsCarryBackendName(t *testing.T) {
	s := newTestStore(t, store.BackendCSV)
	_, err := s.SaveData(store.RecordSet{})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *store.Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *store.Error, got %T", err)
	}
	if se.Backend != "csv" {
		t.Fatalf("expected backend annotation csv, got %q", se.Backend)
	}
}
