package engine

import (
	"context"
	"encoding/json"

	"github.com/oracleschema/mcp-server/internal/apperr"
)

// GetTableSchema implements get_table_schema(name).
func (e *Engine) GetTableSchema(ctx context.Context, name string) (*TableRecordJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	t, err := e.Cache.GetTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFoundErr("table " + name)
	}
	out := tableToJSON(t)
	return &out, nil
}

// TableOrError is one entry of get_tables_schema's result map: either a
// populated TableRecordJSON or a structured {error: "not_found"}.
type TableOrError struct {
	Table *TableRecordJSON `json:"-"`
	Error string           `json:"error,omitempty"`
}

// MarshalJSON renders either the table itself or the {error} envelope,
// never both, matching spec.md §6's per-entry shape.
func (t TableOrError) MarshalJSON() ([]byte, error) {
	if t.Table != nil {
		return json.Marshal(t.Table)
	}
	return json.Marshal(struct {
		Error string `json:"error"`
	}{Error: t.Error})
}

// GetTablesSchema implements get_tables_schema(names).
func (e *Engine) GetTablesSchema(ctx context.Context, names []string) (map[string]TableOrError, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	out := make(map[string]TableOrError, len(names))
	for _, n := range names {
		t, err := e.Cache.GetTable(ctx, n)
		if err != nil {
			return nil, err
		}
		if t == nil {
			out[n] = TableOrError{Error: "not_found"}
			continue
		}
		tj := tableToJSON(t)
		out[n] = TableOrError{Table: &tj}
	}
	return out, nil
}

// SearchTablesSchema implements search_tables_schema(pattern, limit).
func (e *Engine) SearchTablesSchema(ctx context.Context, pattern string, limit int) ([]TableRecordJSON, error) {
	results, err := e.Cache.SearchTables(pattern, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TableRecordJSON, 0, len(results))
	for _, t := range results {
		out = append(out, tableToJSON(t))
	}
	return out, nil
}

// ColumnMatchJSON is one row of search_columns' result.
type ColumnMatchJSON struct {
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Column   string `json:"column"`
	DataType string `json:"data_type"`
}

// SearchColumns implements search_columns(fragment, limit).
func (e *Engine) SearchColumns(ctx context.Context, fragment string, limit int) ([]ColumnMatchJSON, error) {
	matches, err := e.Cache.SearchColumns(fragment, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ColumnMatchJSON, 0, len(matches))
	for _, m := range matches {
		out = append(out, ColumnMatchJSON{Schema: m.Schema, Table: m.Table, Column: m.Column, DataType: m.DataType})
	}
	return out, nil
}

// GetDatabaseVendorInfo implements get_database_vendor_info().
func (e *Engine) GetDatabaseVendorInfo(ctx context.Context) (map[string]string, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	info, err := e.Conn.SessionInfo(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "fetch session info", err)
	}
	return map[string]string{
		"product":         info.Product,
		"version":         info.VersionBanner,
		"schema":          info.CurrentSchema,
		"connection_mode": info.ConnectionMode,
	}, nil
}
