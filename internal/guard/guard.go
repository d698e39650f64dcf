// Package guard implements the single-shot decision runner: one hook
// payload in, one allow/block outcome out, one audit record appended.
package guard

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ppiankov/secretguard/internal/audit"
	"github.com/ppiankov/secretguard/internal/exceptions"
	"github.com/ppiankov/secretguard/internal/rules"
)

// Exit codes of the hook protocol. Anything the runner cannot
// understand is blocked, never silently allowed.
const (
	CodeAllow = 0
	CodeBlock = 2
)

// Config holds everything a Guard needs, passed in at construction.
type Config struct {
	Rules      *rules.Set
	AuditLog   string // empty disables audit logging
	LogAllowed bool
	Exceptions *exceptions.Store // optional
	WorkDir    string            // defaults to the process working directory
}

// Outcome is the result of evaluating one payload. Message goes to the
// caller's error channel; Warnings report non-fatal trouble (such as a
// failed audit append) that must not change the decision.
type Outcome struct {
	Code     int
	Message  string
	Warnings []string
}

// Guard evaluates hook payloads against the rule set. It is stateless
// between Run calls; all persistent state lives in the audit log and
// the exception store.
type Guard struct {
	cfg Config
}

// New creates a Guard, filling in defaults for unset fields.
func New(cfg Config) *Guard {
	if cfg.Rules == nil {
		cfg.Rules = rules.Default()
	}
	if cfg.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkDir = wd
		}
	}
	return &Guard{cfg: cfg}
}

// Run evaluates one raw payload and returns the outcome. It never
// panics and always yields CodeAllow or CodeBlock.
func (g *Guard) Run(payload []byte) Outcome {
	// Nothing to evaluate is not an error.
	if len(bytes.TrimSpace(payload)) == 0 {
		return Outcome{Code: CodeAllow}
	}

	req, err := parseRequest(payload)
	if err != nil {
		// Fail closed: a request the runner cannot understand is not
		// allowed to proceed.
		return Outcome{Code: CodeBlock, Message: fmt.Sprintf("secretguard: %v", err)}
	}

	if req.FilePath == "" {
		return Outcome{Code: CodeAllow}
	}

	dec := g.cfg.Rules.Classify(req.FilePath)
	if !dec.Blocked {
		out := Outcome{Code: CodeAllow}
		if g.cfg.LogAllowed {
			g.append(&out, g.entry(req, audit.EventAllowed, ""))
		}
		return out
	}

	if g.cfg.Exceptions != nil {
		covered, err := g.cfg.Exceptions.Covers(req.FilePath)
		if err != nil {
			// The block stands; the broken store is only a warning.
			out := g.block(req, dec)
			out.Warnings = append(out.Warnings, fmt.Sprintf("exception store unavailable: %v", err))
			return out
		}
		if covered {
			out := Outcome{Code: CodeAllow}
			// Exception use is always recorded, regardless of LogAllowed.
			g.append(&out, g.entry(req, audit.EventAllowed, "approved exception: "+dec.Reason))
			return out
		}
	}

	return g.block(req, dec)
}

// Check classifies a path without auditing anything. Dry-run mode;
// exceptions are honored the same way Run honors them.
func (g *Guard) Check(path string) rules.Decision {
	dec := g.cfg.Rules.Classify(path)
	if dec.Blocked && g.cfg.Exceptions != nil {
		if covered, err := g.cfg.Exceptions.Covers(path); err == nil && covered {
			return rules.Decision{}
		}
	}
	return dec
}

func (g *Guard) block(req request, dec rules.Decision) Outcome {
	out := Outcome{
		Code:    CodeBlock,
		Message: fmt.Sprintf("Access to sensitive file blocked: %s\nReason: %s", req.FilePath, dec.Reason),
	}
	g.append(&out, g.entry(req, audit.EventBlocked, dec.Reason))
	return out
}

func (g *Guard) entry(req request, event audit.Event, reason string) audit.Entry {
	return audit.Entry{
		FilePath:   req.FilePath,
		Tool:       req.ToolName,
		WorkingDir: g.cfg.WorkDir,
		Event:      event,
		Reason:     reason,
	}
}

// append writes one audit record, best-effort. Failures become
// warnings and never affect the decision.
func (g *Guard) append(out *Outcome, e audit.Entry) {
	if g.cfg.AuditLog == "" {
		return
	}
	log, err := audit.Open(g.cfg.AuditLog)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("audit log unavailable: %v", err))
		return
	}
	defer log.Close()
	if err := log.Record(e); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("audit append failed: %v", err))
	}
}
