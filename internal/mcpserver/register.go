// Package mcpserver binds the engine's tool surface onto the MCP transport.
// It owns no state and makes no business decisions: every tool handler here
// decodes its JSON-RPC arguments, calls straight into engine.Engine, and
// encodes the result. All policy (gating, caching, limits) lives in
// internal/engine and internal/cache.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/oracleschema/mcp-server/internal/apperr"
	"github.com/oracleschema/mcp-server/internal/connector"
	"github.com/oracleschema/mcp-server/internal/engine"
)

// Server owns the mcp-go server instance and the engine it dispatches to.
type Server struct {
	mcp *server.MCPServer
	eng *engine.Engine
}

// New builds the MCP server and registers every tool named in
// engine.ToolNames against the explicit handler table below.
func New(name, version string, eng *engine.Engine) *Server {
	s := &Server{
		mcp: server.NewMCPServer(name, version),
		eng: eng,
	}
	s.registerAll()
	return s
}

// Serve runs the server over stdio, the MCP transport spec.md §2 names as
// the in-scope framing.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerAll() {
	s.mcp.AddTool(
		mcp.NewTool("get_table_schema",
			mcp.WithDescription("Fetch the full structural description of one table, view, or materialized view by name."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Table name, optionally schema-qualified as schema.name")),
		),
		s.handleGetTableSchema,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_tables_schema",
			mcp.WithDescription("Fetch the structural description of several tables at once, as an object keyed by each requested name (keys in sorted order, not input order)."),
			mcp.WithArray("names", mcp.Required(), mcp.Description("Table names")),
		),
		s.handleGetTablesSchema,
	)
	s.mcp.AddTool(
		mcp.NewTool("search_tables_schema",
			mcp.WithDescription("Search table names by glob pattern (% wildcard) or substring."),
			mcp.WithString("pattern", mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Max results, default 50, capped at 500")),
		),
		s.handleSearchTablesSchema,
	)
	s.mcp.AddTool(
		mcp.NewTool("search_columns",
			mcp.WithDescription("Search column names across every cached table."),
			mcp.WithString("fragment", mcp.Required()),
			mcp.WithNumber("limit"),
		),
		s.handleSearchColumns,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_database_vendor_info",
			mcp.WithDescription("Report the Oracle product, version banner, current schema, and connection mode."),
		),
		s.handleGetDatabaseVendorInfo,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_pl_sql_objects",
			mcp.WithDescription("List PL/SQL catalog objects matching a name pattern and optional kind filter."),
			mcp.WithString("name_pattern"),
			mcp.WithArray("kinds", mcp.Description("PROCEDURE, FUNCTION, PACKAGE, PACKAGE_BODY, TRIGGER, TYPE, TYPE_BODY, SEQUENCE, SYNONYM")),
		),
		s.handleGetPLSQLObjects,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_object_source",
			mcp.WithDescription("Fetch the source text of a PL/SQL object, capped at 1 MiB."),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("kind", mcp.Required()),
		),
		s.handleGetObjectSource,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_table_constraints",
			mcp.WithDescription("Fetch the primary key, unique keys, foreign keys, and check constraints of a table."),
			mcp.WithString("name", mcp.Required()),
		),
		s.handleGetTableConstraints,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_table_indexes",
			mcp.WithDescription("Fetch the indexes defined on a table."),
			mcp.WithString("name", mcp.Required()),
		),
		s.handleGetTableIndexes,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_dependent_objects",
			mcp.WithDescription("List catalog objects that depend on the named object."),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("kind"),
		),
		s.handleGetDependentObjects,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_user_defined_types",
			mcp.WithDescription("List user-defined OBJECT/COLLECTION/VARRAY types matching a name pattern."),
			mcp.WithString("pattern"),
		),
		s.handleGetUserDefinedTypes,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_related_tables",
			mcp.WithDescription("Walk the foreign-key graph one hop in each direction from a table."),
			mcp.WithString("name", mcp.Required()),
		),
		s.handleGetRelatedTables,
	)
	s.mcp.AddTool(
		mcp.NewTool("rebuild_schema_cache",
			mcp.WithDescription("Force a full recomputation of the schema cache from the live catalog."),
		),
		s.handleRebuildSchemaCache,
	)
	s.mcp.AddTool(
		mcp.NewTool("read_query",
			mcp.WithDescription("Run a SELECT statement and return its rows. Only SELECT/WITH statements are accepted."),
			mcp.WithString("sql", mcp.Required()),
		),
		s.handleReadQuery,
	)
	s.mcp.AddTool(
		mcp.NewTool("exec_ddl_sql",
			mcp.WithDescription("Run a DDL statement (CREATE/ALTER/DROP/...). Invalidates the affected cache entry on success."),
			mcp.WithString("sql", mcp.Required()),
		),
		s.handleExecDDLSQL,
	)
	s.mcp.AddTool(
		mcp.NewTool("exec_dml_sql",
			mcp.WithDescription("Run a DML statement (INSERT/UPDATE/DELETE/MERGE) and report rows affected."),
			mcp.WithString("sql", mcp.Required()),
		),
		s.handleExecDMLSQL,
	)
	s.mcp.AddTool(
		mcp.NewTool("exec_pro_sql",
			mcp.WithDescription("Run an anonymous PL/SQL block (BEGIN/DECLARE/CALL)."),
			mcp.WithString("block", mcp.Required()),
		),
		s.handleExecProSQL,
	)
}

// jsonResult encodes v as the tool's text content, the shape every handler
// below converges on.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError renders apperr's taxonomy into the MCP error envelope; NotFound
// is the one kind callers expect back as a structured, non-error result, so
// lookup handlers check for it themselves before reaching here.
func toolError(err error) (*mcp.CallToolResult, error) {
	kind := apperr.KindOf(err)
	zap.L().Warn("tool call failed", zap.String("kind", string(kind)), zap.Error(err))
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err)), nil
}

func paramsFromArgs(args map[string]any) []connector.Param {
	out := make([]connector.Param, 0, len(args))
	for k, v := range args {
		out = append(out, connector.Param{Name: k, Value: v})
	}
	return out
}
