// Package engine implements L3, the Context Engine: the tool surface
// exposed to the MCP layer. Each exported method is a pure function over
// (arguments, Cache, Connector) with a bounded response size, composing the
// cache and connector the way the teacher's api.handlers composed
// reactive.Registry and the pg pool, minus any transport framing.
package engine

import (
	"context"
	"time"

	"github.com/oracleschema/mcp-server/internal/apperr"
	"github.com/oracleschema/mcp-server/internal/cache"
	"github.com/oracleschema/mcp-server/internal/connector"
)

// ToolDeadline is the default per-call deadline (spec.md §5's "every tool
// call carries a deadline, default 30s").
const ToolDeadline = 30 * time.Second

// Connector is the narrow slice of *connector.Connector the engine depends
// on, so tests can substitute a fake instead of a live Oracle session.
type Connector interface {
	Query(ctx context.Context, sql string, kind connector.StatementKind, params ...connector.Param) (*connector.Rows, error)
	Execute(ctx context.Context, sql string, kind connector.StatementKind, params ...connector.Param) (*connector.ExecResult, error)
	SessionInfo(ctx context.Context) (*connector.SessionInfo, error)
}

// Engine wires the two lower layers behind the explicit tool table built in
// tools.go. No global singletons: one Engine instance is constructed at
// startup and threaded through every tool handler (per spec.md §9's
// redesign away from global pool/cache state).
type Engine struct {
	Cache *cache.Cache
	Conn  Connector
}

// New constructs an Engine over an already-built Cache and Connector.
func New(c *cache.Cache, conn Connector) *Engine {
	return &Engine{Cache: c, Conn: conn}
}

// withDeadline applies the default tool deadline unless the caller already
// set a shorter one.
func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= ToolDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, ToolDeadline)
}

func notFoundErr(what string) error {
	return apperr.New(apperr.NotFound, what+" not found")
}
