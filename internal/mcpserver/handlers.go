package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oracleschema/mcp-server/internal/apperr"
)

// argString/argStringSlice/argLimit pull typed arguments out of the raw
// JSON-RPC argument map rather than relying on a fixed struct per tool — the
// teacher's ws.go handlers take the same approach against gorilla's raw
// message payloads.
func argString(req mcp.CallToolRequest, key string) string {
	if v, ok := req.GetArguments()[key].(string); ok {
		return v
	}
	return ""
}

func argStringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func argLimit(req mcp.CallToolRequest, key string) int {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (s *Server) handleGetTableSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := argString(req, "name")
	t, err := s.eng.GetTableSchema(ctx, name)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return jsonResult(map[string]string{"error": "not_found"})
		}
		return toolError(err)
	}
	return jsonResult(t)
}

func (s *Server) handleGetTablesSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := argStringSlice(req, "names")
	out, err := s.eng.GetTablesSchema(ctx, names)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleSearchTablesSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern := argString(req, "pattern")
	limit := argLimit(req, "limit")
	out, err := s.eng.SearchTablesSchema(ctx, pattern, limit)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleSearchColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fragment := argString(req, "fragment")
	limit := argLimit(req, "limit")
	out, err := s.eng.SearchColumns(ctx, fragment, limit)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetDatabaseVendorInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.eng.GetDatabaseVendorInfo(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetPLSQLObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern := argString(req, "name_pattern")
	kinds := argStringSlice(req, "kinds")
	out, err := s.eng.GetPLSQLObjects(ctx, pattern, kinds)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetObjectSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := argString(req, "name")
	kind := argString(req, "kind")
	out, err := s.eng.GetObjectSource(ctx, name, kind)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return jsonResult(map[string]string{"error": "not_found"})
		}
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetTableConstraints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := argString(req, "name")
	out, err := s.eng.GetTableConstraints(ctx, name)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return jsonResult(map[string]string{"error": "not_found"})
		}
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetTableIndexes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := argString(req, "name")
	out, err := s.eng.GetTableIndexes(ctx, name)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetDependentObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := argString(req, "name")
	kind := argString(req, "kind")
	out, err := s.eng.GetDependentObjects(ctx, name, kind)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetUserDefinedTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern := argString(req, "pattern")
	out, err := s.eng.GetUserDefinedTypes(ctx, pattern)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleGetRelatedTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := argString(req, "name")
	out, err := s.eng.GetRelatedTables(ctx, name)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleRebuildSchemaCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.eng.RebuildSchemaCache(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleReadQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql := argString(req, "sql")
	out, err := s.eng.ReadQuery(ctx, sql, paramsFromArgs(bindParamArgs(req)))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleExecDDLSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql := argString(req, "sql")
	out, err := s.eng.ExecDDLSQL(ctx, sql)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleExecDMLSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql := argString(req, "sql")
	out, err := s.eng.ExecDMLSQL(ctx, sql, paramsFromArgs(bindParamArgs(req)))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

func (s *Server) handleExecProSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	block := argString(req, "block")
	out, err := s.eng.ExecProSQL(ctx, block)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(out)
}

// bindParamArgs extracts an optional "params" object of named bind values.
func bindParamArgs(req mcp.CallToolRequest) map[string]any {
	raw, ok := req.GetArguments()["params"].(map[string]any)
	if !ok {
		return nil
	}
	return raw
}
