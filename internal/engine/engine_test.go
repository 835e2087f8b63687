package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/oracleschema/mcp-server/internal/apperr"
	"github.com/oracleschema/mcp-server/internal/cache"
	"github.com/oracleschema/mcp-server/internal/connector"
)

// fakeCatalog feeds the cache layer a small HR.EMPLOYEES/DEPARTMENTS schema,
// a trimmed-down variant of the cache package's test fixture (fewer columns,
// no primary keys or comments), so the engine tests exercise real
// Cache/indexes code rather than a mock of it.
type fakeCatalog struct{}

func paramVal(params []connector.Param, name string) any {
	for _, p := range params {
		if p.Name == name {
			return p.Value
		}
	}
	return nil
}

func (f *fakeCatalog) FetchAll(ctx context.Context, sql string, params ...connector.Param) (*connector.Rows, error) {
	owner, _ := paramVal(params, "owner").(string)
	tableFilter, _ := paramVal(params, "table_name").(string)

	switch {
	case strings.Contains(sql, "FROM all_tables"):
		rows := &connector.Rows{Columns: []string{"table_name", "kind", "last_ddl_time", "comments"}}
		if owner == "HR" {
			for _, name := range []string{"EMPLOYEES", "DEPARTMENTS"} {
				if tableFilter != "" && tableFilter != name {
					continue
				}
				rows.Data = append(rows.Data, []any{name, "TABLE", nil, nil})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_tab_columns"):
		rows := &connector.Rows{Columns: []string{"table_name", "column_name", "column_id", "data_type", "data_length", "data_precision", "data_scale", "nullable", "data_default", "char_used"}}
		cols := map[string][][]any{
			"EMPLOYEES": {
				{"EMPLOYEES", "EMP_ID", int64(1), "NUMBER", nil, nil, nil, "N", nil, nil},
				{"EMPLOYEES", "DEPT_ID", int64(2), "NUMBER", nil, nil, nil, "Y", nil, nil},
			},
			"DEPARTMENTS": {
				{"DEPARTMENTS", "DEPT_ID", int64(1), "NUMBER", nil, nil, nil, "N", nil, nil},
			},
		}
		for table, rs := range cols {
			if owner != "HR" || (tableFilter != "" && tableFilter != table) {
				continue
			}
			rows.Data = append(rows.Data, rs...)
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_constraints"):
		rows := &connector.Rows{Columns: []string{"constraint_name", "constraint_type", "table_name", "status", "deferrable", "r_owner", "r_table_name", "delete_rule"}}
		if owner == "HR" {
			if tableFilter == "" || tableFilter == "EMPLOYEES" {
				rows.Data = append(rows.Data, []any{"EMP_DEPT_FK", "R", "EMPLOYEES", "ENABLED", "NOT DEFERRABLE", "HR", "DEPARTMENTS", "NO ACTION"})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_cons_columns"):
		rows := &connector.Rows{Columns: []string{"constraint_name", "table_name", "column_name", "position"}}
		if owner == "HR" && (tableFilter == "" || tableFilter == "EMPLOYEES") {
			rows.Data = append(rows.Data, []any{"EMP_DEPT_FK", "EMPLOYEES", "DEPT_ID", int64(1)})
		}
		return rows, nil
	}

	return &connector.Rows{}, nil
}

func (f *fakeCatalog) Execute(ctx context.Context, sql string, kind connector.StatementKind, params ...connector.Param) (*connector.ExecResult, error) {
	return &connector.ExecResult{RowsAffected: 0}, nil
}

// fakeConnector is the engine.Connector double: it applies a simplified
// leading-keyword gate of its own so a scenario like "send a DELETE through
// read_query" still reproduces what the real connector's checkGate would
// reject, without reaching into the connector package's unexported classify.
type fakeConnector struct {
	lastExecSQL  string
	lastExecKind connector.StatementKind
}

func (f *fakeConnector) Query(ctx context.Context, sql string, kind connector.StatementKind, params ...connector.Param) (*connector.Rows, error) {
	word := strings.ToUpper(strings.Fields(strings.TrimSpace(sql))[0])
	if kind == connector.KindSelect && word != "SELECT" && word != "WITH" {
		return nil, apperr.New(apperr.DisallowedStatement, "statement is not a SELECT")
	}
	return &connector.Rows{Columns: []string{"n"}, Data: [][]any{{int64(1)}}}, nil
}

func (f *fakeConnector) Execute(ctx context.Context, sql string, kind connector.StatementKind, params ...connector.Param) (*connector.ExecResult, error) {
	f.lastExecSQL = sql
	f.lastExecKind = kind
	return &connector.ExecResult{RowsAffected: 1}, nil
}

func (f *fakeConnector) SessionInfo(ctx context.Context) (*connector.SessionInfo, error) {
	return &connector.SessionInfo{
		Product: "Oracle Database", VersionBanner: "19c", CurrentSchema: "HR", ConnectionMode: "thin",
	}, nil
}

func newTestEngine() *Engine {
	c := cache.New(cache.Config{TargetSchema: "HR"}, &fakeCatalog{})
	return New(c, &fakeConnector{})
}

// TestExactLookup is scenario S1: get_table_schema on an existing table
// returns its full structure.
func TestExactLookup(t *testing.T) {
	e := newTestEngine()
	out, err := e.GetTableSchema(context.Background(), "EMPLOYEES")
	if err != nil {
		t.Fatalf("GetTableSchema: %v", err)
	}
	if out.Name != "EMPLOYEES" || out.Schema != "HR" {
		t.Errorf("got %+v, want HR.EMPLOYEES", out)
	}
	if len(out.Columns) != 2 {
		t.Errorf("got %d columns, want 2", len(out.Columns))
	}
}

func TestExactLookupNotFound(t *testing.T) {
	e := newTestEngine()
	_, err := e.GetTableSchema(context.Background(), "NOPE")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("KindOf(err) = %v, want not_found", apperr.KindOf(err))
	}
}

// TestPatternSearchPrefixGlob checks that a prefix glob ("DEP%") through
// search_tables_schema returns only the table with that prefix.
func TestPatternSearchPrefixGlob(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	if _, err := e.GetTableSchema(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := e.GetTableSchema(ctx, "DEPARTMENTS"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	results, err := e.SearchTablesSchema(ctx, "DEP%", 10)
	if err != nil {
		t.Fatalf("SearchTablesSchema: %v", err)
	}
	if len(results) != 1 || results[0].Name != "DEPARTMENTS" {
		t.Errorf("got %+v, want [DEPARTMENTS]", results)
	}
}

// TestColumnSearch is scenario S3.
func TestColumnSearch(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	if _, err := e.GetTableSchema(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := e.GetTableSchema(ctx, "DEPARTMENTS"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	matches, err := e.SearchColumns(ctx, "dept_id", 10)
	if err != nil {
		t.Fatalf("SearchColumns: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2 (one per table)", len(matches))
	}
}

// TestRelatedTablesScenario is scenario S4.
func TestRelatedTablesScenario(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	if _, err := e.GetTableSchema(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rel, err := e.GetRelatedTables(ctx, "DEPARTMENTS")
	if err != nil {
		t.Fatalf("GetRelatedTables: %v", err)
	}
	if len(rel.Incoming) != 1 || rel.Incoming[0].Name != "EMPLOYEES" {
		t.Errorf("incoming = %+v, want one EMPLOYEES row", rel.Incoming)
	}
	if len(rel.Outgoing) != 0 {
		t.Errorf("outgoing = %+v, want empty", rel.Outgoing)
	}
}

// TestDDLInvalidates is scenario S5: exec_ddl_sql drops the affected
// table's cached entry so the next lookup re-fetches it.
func TestDDLInvalidates(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	if _, err := e.GetTableSchema(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if e.Cache.Size() != 1 {
		t.Fatalf("Size() = %d before invalidation, want 1", e.Cache.Size())
	}

	if _, err := e.ExecDDLSQL(ctx, "ALTER TABLE HR.EMPLOYEES ADD (EMAIL VARCHAR2(100))"); err != nil {
		t.Fatalf("ExecDDLSQL: %v", err)
	}

	if e.Cache.Size() != 0 {
		t.Error("ExecDDLSQL should have invalidated HR.EMPLOYEES, dropping cache size to 0")
	}
}

// TestGateViolation is scenario S6: read_query refuses a non-SELECT
// statement with a DisallowedStatement error, never executing it.
func TestGateViolation(t *testing.T) {
	e := newTestEngine()
	_, err := e.ReadQuery(context.Background(), "DELETE FROM employees", nil)
	if err == nil {
		t.Fatal("ReadQuery(DELETE) should have been rejected by the gate")
	}
	if apperr.KindOf(err) != apperr.DisallowedStatement {
		t.Errorf("KindOf(err) = %v, want disallowed_statement", apperr.KindOf(err))
	}
}

func TestReadQuerySelectPasses(t *testing.T) {
	e := newTestEngine()
	out, err := e.ReadQuery(context.Background(), "SELECT 1 FROM dual", nil)
	if err != nil {
		t.Fatalf("ReadQuery: %v", err)
	}
	if out.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", out.RowCount)
	}
}

func TestGetDatabaseVendorInfo(t *testing.T) {
	e := newTestEngine()
	info, err := e.GetDatabaseVendorInfo(context.Background())
	if err != nil {
		t.Fatalf("GetDatabaseVendorInfo: %v", err)
	}
	if info["product"] != "Oracle Database" || info["schema"] != "HR" {
		t.Errorf("got %+v", info)
	}
}
