package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/secretguard/internal/audit"
	"github.com/ppiankov/secretguard/internal/exceptions"
)

func newTestGuard(t *testing.T, mutate func(*Config)) (*Guard, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "audit.log")
	cfg := Config{
		AuditLog: logPath,
		WorkDir:  "/work",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), logPath
}

func records(t *testing.T, path string) []audit.Entry {
	t.Helper()
	entries, err := audit.Read(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	return entries
}

func TestEmptyPayloadAllowsWithoutRecord(t *testing.T) {
	g, logPath := newTestGuard(t, nil)

	for _, payload := range []string{"", "   ", "\n\t "} {
		out := g.Run([]byte(payload))
		if out.Code != CodeAllow {
			t.Errorf("payload %q: code = %d, want %d", payload, out.Code, CodeAllow)
		}
		if out.Message != "" {
			t.Errorf("payload %q: unexpected message %q", payload, out.Message)
		}
	}
	if n := len(records(t, logPath)); n != 0 {
		t.Errorf("got %d audit records, want 0", n)
	}
}

func TestSensitivePathBlockedAndAudited(t *testing.T) {
	g, logPath := newTestGuard(t, nil)

	out := g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":".env"}}`))
	if out.Code != CodeBlock {
		t.Fatalf("code = %d, want %d", out.Code, CodeBlock)
	}
	if !strings.Contains(out.Message, ".env") {
		t.Errorf("message %q does not name the path", out.Message)
	}
	if !strings.Contains(out.Message, "Environment file") {
		t.Errorf("message %q does not carry the reason", out.Message)
	}

	entries := records(t, logPath)
	if len(entries) != 1 {
		t.Fatalf("got %d audit records, want 1", len(entries))
	}
	e := entries[0]
	if e.Event != audit.EventBlocked {
		t.Errorf("event = %q, want BLOCKED", e.Event)
	}
	if e.FilePath != ".env" {
		t.Errorf("file_path = %q, want .env", e.FilePath)
	}
	if e.Tool != "Read" {
		t.Errorf("tool = %q, want Read", e.Tool)
	}
	if e.WorkingDir != "/work" {
		t.Errorf("working_dir = %q, want /work", e.WorkingDir)
	}
}

func TestSafePathAllowedWithoutRecord(t *testing.T) {
	g, logPath := newTestGuard(t, nil)

	out := g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":"README.md"}}`))
	if out.Code != CodeAllow {
		t.Fatalf("code = %d, want %d", out.Code, CodeAllow)
	}
	if n := len(records(t, logPath)); n != 0 {
		t.Errorf("got %d audit records, want 0", n)
	}
}

func TestLogAllowedRecordsAllowedEvents(t *testing.T) {
	g, logPath := newTestGuard(t, func(c *Config) { c.LogAllowed = true })

	out := g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":"README.md"}}`))
	if out.Code != CodeAllow {
		t.Fatalf("code = %d", out.Code)
	}

	entries := records(t, logPath)
	if len(entries) != 1 {
		t.Fatalf("got %d audit records, want 1", len(entries))
	}
	if entries[0].Event != audit.EventAllowed {
		t.Errorf("event = %q, want ALLOWED", entries[0].Event)
	}
}

func TestMalformedPayloadFailsClosed(t *testing.T) {
	g, logPath := newTestGuard(t, nil)

	for _, payload := range []string{
		`{"tool_input":{"file_path":".env"`,
		`not json at all`,
		`[1,2,3]`,
	} {
		out := g.Run([]byte(payload))
		if out.Code != CodeBlock {
			t.Errorf("payload %q: code = %d, want %d", payload, out.Code, CodeBlock)
		}
		if out.Message == "" {
			t.Errorf("payload %q: expected a parse error message", payload)
		}
	}
	if n := len(records(t, logPath)); n != 0 {
		t.Errorf("got %d audit records, want 0", n)
	}
}

func TestMissingOrInvalidPathAllows(t *testing.T) {
	g, logPath := newTestGuard(t, nil)

	for _, payload := range []string{
		`{}`,
		`null`,
		`{"tool_name":"Bash"}`,
		`{"tool_input":{}}`,
		`{"tool_input":{"file_path":42}}`,
		`{"tool_input":"not an object"}`,
	} {
		out := g.Run([]byte(payload))
		if out.Code != CodeAllow {
			t.Errorf("payload %q: code = %d, want %d", payload, out.Code, CodeAllow)
		}
	}
	if n := len(records(t, logPath)); n != 0 {
		t.Errorf("got %d audit records, want 0", n)
	}
}

func TestNormalizedPathStillBlocked(t *testing.T) {
	g, _ := newTestGuard(t, nil)

	out := g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":"./config/../.env"}}`))
	if out.Code != CodeBlock {
		t.Errorf("code = %d, want %d", out.Code, CodeBlock)
	}
}

func TestLogFailureDoesNotChangeDecision(t *testing.T) {
	dir := t.TempDir()
	// Point the log at a path whose parent is a file, so MkdirAll fails.
	obstacle := filepath.Join(dir, "blocked")
	if err := os.WriteFile(obstacle, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := New(Config{AuditLog: filepath.Join(obstacle, "audit.log")})

	out := g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":".env"}}`))
	if out.Code != CodeBlock {
		t.Errorf("code = %d, want %d", out.Code, CodeBlock)
	}
	if len(out.Warnings) == 0 {
		t.Error("expected a warning about the failed audit append")
	}

	out = g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":"README.md"}}`))
	if out.Code != CodeAllow {
		t.Errorf("code = %d, want %d", out.Code, CodeAllow)
	}
}

func TestExceptionAllowsAndIsAudited(t *testing.T) {
	store, err := exceptions.Open(filepath.Join(t.TempDir(), "exceptions.db"))
	if err != nil {
		t.Fatalf("open exceptions: %v", err)
	}
	defer store.Close()
	if err := store.Add("fixtures/.env", "test fixture", 0); err != nil {
		t.Fatal(err)
	}

	g, logPath := newTestGuard(t, func(c *Config) { c.Exceptions = store })

	out := g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":"fixtures/.env"}}`))
	if out.Code != CodeAllow {
		t.Fatalf("code = %d, want %d", out.Code, CodeAllow)
	}

	entries := records(t, logPath)
	if len(entries) != 1 {
		t.Fatalf("got %d audit records, want 1", len(entries))
	}
	if entries[0].Event != audit.EventAllowed {
		t.Errorf("event = %q, want ALLOWED", entries[0].Event)
	}
	if !strings.Contains(entries[0].Reason, "approved exception") {
		t.Errorf("reason = %q, expected exception note", entries[0].Reason)
	}

	// A sensitive path without an exception is still blocked.
	out = g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":"other/.env"}}`))
	if out.Code != CodeBlock {
		t.Errorf("code = %d, want %d", out.Code, CodeBlock)
	}
}

func TestExpiredExceptionStillBlocks(t *testing.T) {
	store, err := exceptions.Open(filepath.Join(t.TempDir(), "exceptions.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Add("fixtures/.env", "", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	g, _ := newTestGuard(t, func(c *Config) { c.Exceptions = store })

	out := g.Run([]byte(`{"tool_name":"Read","tool_input":{"file_path":"fixtures/.env"}}`))
	if out.Code != CodeBlock {
		t.Errorf("code = %d, want %d", out.Code, CodeBlock)
	}
}

func TestConcurrentBlockedRunsProduceDistinctRecords(t *testing.T) {
	g, logPath := newTestGuard(t, nil)
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf(`{"tool_name":"Read","tool_input":{"file_path":"p%d/.env"}}`, i)
			if out := g.Run([]byte(payload)); out.Code != CodeBlock {
				t.Errorf("run %d: code = %d", i, out.Code)
			}
		}(i)
	}
	wg.Wait()

	entries := records(t, logPath)
	if len(entries) != n {
		t.Fatalf("got %d audit records, want %d", len(entries), n)
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.FilePath] {
			t.Errorf("duplicate record for %s", e.FilePath)
		}
		seen[e.FilePath] = true
	}
}
