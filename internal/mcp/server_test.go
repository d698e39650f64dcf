package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ppiankov/secretguard/internal/audit"
	"github.com/ppiankov/secretguard/internal/config"
)

func newTestServer(t *testing.T) (*Server, config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		AuditLog:     filepath.Join(dir, "audit.log"),
		ExceptionsDB: filepath.Join(dir, "exceptions.db"),
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, cfg
}

func TestHandleCheckBlocksSensitivePath(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleCheck(context.Background(), nil, CheckInput{Path: ".env"})
	if err != nil {
		t.Fatalf("handleCheck: %v", err)
	}
	if !out.Blocked {
		t.Error("expected .env to be blocked")
	}
	if out.Reason == "" {
		t.Error("expected a reason")
	}

	_, out, err = s.handleCheck(context.Background(), nil, CheckInput{Path: "README.md"})
	if err != nil {
		t.Fatalf("handleCheck: %v", err)
	}
	if out.Blocked {
		t.Error("expected README.md to be allowed")
	}
}

func TestHandleCheckHonorsExceptions(t *testing.T) {
	s, _ := newTestServer(t)

	if err := s.store.Add("fixtures/.env", "test fixture", 0); err != nil {
		t.Fatal(err)
	}

	_, out, err := s.handleCheck(context.Background(), nil, CheckInput{Path: "fixtures/.env"})
	if err != nil {
		t.Fatalf("handleCheck: %v", err)
	}
	if out.Blocked {
		t.Error("expected exception to allow the path")
	}
	if !out.Exception {
		t.Error("expected exception flag")
	}
}

func TestHandleRecentReturnsTail(t *testing.T) {
	s, cfg := newTestServer(t)

	log, err := audit.Open(cfg.AuditLog)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 15; i++ {
		if err := log.Record(audit.Entry{FilePath: ".env", Event: audit.EventBlocked}); err != nil {
			t.Fatal(err)
		}
	}
	log.Close()

	_, out, err := s.handleRecent(context.Background(), nil, RecentInput{})
	if err != nil {
		t.Fatalf("handleRecent: %v", err)
	}
	if len(out.Entries) != 10 {
		t.Errorf("got %d entries, want default 10", len(out.Entries))
	}

	_, out, err = s.handleRecent(context.Background(), nil, RecentInput{Lines: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Entries) != 3 {
		t.Errorf("got %d entries, want 3", len(out.Entries))
	}
}

func TestHandleExceptionsListsStore(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleExceptions(context.Background(), nil, ExceptionsInput{})
	if err != nil {
		t.Fatalf("handleExceptions: %v", err)
	}
	if len(out.Exceptions) != 0 {
		t.Errorf("expected empty list, got %+v", out.Exceptions)
	}

	if err := s.store.Add("fixtures/.env", "test fixture", 0); err != nil {
		t.Fatal(err)
	}

	_, out, err = s.handleExceptions(context.Background(), nil, ExceptionsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Exceptions) != 1 {
		t.Fatalf("got %d exceptions, want 1", len(out.Exceptions))
	}
	if out.Exceptions[0].Path != "fixtures/.env" {
		t.Errorf("path = %q", out.Exceptions[0].Path)
	}
}
