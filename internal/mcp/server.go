// Package mcp exposes the guard over the Model Context Protocol so
// agent frameworks can query decisions without shelling out. Stdio
// transport only; there is no network listener.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/secretguard/internal/config"
	"github.com/ppiankov/secretguard/internal/exceptions"
	"github.com/ppiankov/secretguard/internal/rules"
)

// Server wraps the MCP SDK server around the pattern classifier.
type Server struct {
	mcpServer *mcpsdk.Server
	rules     *rules.Set
	store     *exceptions.Store // may be nil
	auditLog  string
}

// New creates an MCP server from loaded configuration.
func New(cfg config.Config) (*Server, error) {
	set, err := rules.Load(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	var store *exceptions.Store
	if cfg.ExceptionsDB != "" {
		store, err = exceptions.Open(cfg.ExceptionsDB)
		if err != nil {
			return nil, fmt.Errorf("open exception store: %w", err)
		}
	}

	s := &Server{
		rules:    set,
		store:    store,
		auditLog: cfg.AuditLog,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "secretguard",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run serves MCP on stdio. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the exception store if one is open.
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "secretguard_check",
		Description: "Check whether a file path would be blocked as sensitive, without touching the file. Dry-run; nothing is audited.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "secretguard_recent",
		Description: "Return recent audit log records of blocked or allowed access attempts.",
	}, s.handleRecent)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "secretguard_exceptions",
		Description: "List approved path exceptions currently on file.",
	}, s.handleExceptions)
}
