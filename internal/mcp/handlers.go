package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/secretguard/internal/audit"
)

// CheckInput defines parameters for the secretguard_check tool.
type CheckInput struct {
	Path string `json:"path" jsonschema:"file path to classify"`
}

// CheckOutput contains the dry-run decision.
type CheckOutput struct {
	Blocked   bool   `json:"blocked"`
	Reason    string `json:"reason,omitempty"`
	Exception bool   `json:"exception,omitempty"`
}

// RecentInput defines parameters for the secretguard_recent tool.
type RecentInput struct {
	Lines int `json:"lines,omitempty" jsonschema:"number of records to return, default 10"`
}

// RecentOutput lists recent audit records.
type RecentOutput struct {
	Entries []audit.Entry `json:"entries"`
}

// ExceptionsInput is empty; no parameters needed.
type ExceptionsInput struct{}

// ExceptionsOutput lists approved path exceptions.
type ExceptionsOutput struct {
	Exceptions []ExceptionItem `json:"exceptions"`
}

// ExceptionItem describes one approved override.
type ExceptionItem struct {
	Path      string `json:"path"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	dec := s.rules.Classify(input.Path)
	out := CheckOutput{Blocked: dec.Blocked, Reason: dec.Reason}

	if dec.Blocked && s.store != nil {
		covered, err := s.store.Covers(input.Path)
		if err != nil {
			return nil, CheckOutput{}, fmt.Errorf("exception lookup: %w", err)
		}
		if covered {
			out.Blocked = false
			out.Exception = true
		}
	}
	return nil, out, nil
}

func (s *Server) handleRecent(ctx context.Context, req *mcpsdk.CallToolRequest, input RecentInput) (*mcpsdk.CallToolResult, RecentOutput, error) {
	n := input.Lines
	if n <= 0 {
		n = 10
	}
	entries, err := audit.Tail(s.auditLog, n)
	if err != nil {
		return nil, RecentOutput{}, fmt.Errorf("read audit log: %w", err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return nil, RecentOutput{Entries: entries}, nil
}

func (s *Server) handleExceptions(ctx context.Context, req *mcpsdk.CallToolRequest, input ExceptionsInput) (*mcpsdk.CallToolResult, ExceptionsOutput, error) {
	out := ExceptionsOutput{Exceptions: []ExceptionItem{}}
	if s.store == nil {
		return nil, out, nil
	}
	list, err := s.store.List()
	if err != nil {
		return nil, ExceptionsOutput{}, fmt.Errorf("list exceptions: %w", err)
	}
	for _, e := range list {
		item := ExceptionItem{
			Path:      e.Path,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.ExpiresAt != nil {
			item.ExpiresAt = e.ExpiresAt.Format(time.RFC3339)
		}
		out.Exceptions = append(out.Exceptions, item)
	}
	return nil, out, nil
}
