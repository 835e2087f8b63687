package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oracleschema/mcp-server/internal/connector"
)

// fakeConn is a small hand-written double over the HR.EMPLOYEES/DEPARTMENTS
// schema from spec.md's S1/S4 scenarios, implementing the narrow QueryRunner
// interface directly rather than pulling in a mocking framework — the same
// style the teacher's pg_lineage tests use for DemoCatalog.
type fakeConn struct {
	execCount int
}

func paramVal(params []connector.Param, name string) any {
	for _, p := range params {
		if p.Name == name {
			return p.Value
		}
	}
	return nil
}

func (f *fakeConn) FetchAll(ctx context.Context, sql string, params ...connector.Param) (*connector.Rows, error) {
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
				rows.Data = append(rows.Data, []any{name, "TABLE", time.Time{}, nil})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_views"):
		return &connector.Rows{Columns: []string{"table_name", "kind"}}, nil

	case strings.Contains(sql, "FROM all_mviews"):
		return &connector.Rows{Columns: []string{"table_name", "kind"}}, nil

	case strings.Contains(sql, "FROM all_tab_columns"):
		rows := &connector.Rows{Columns: []string{"table_name", "column_name", "column_id", "data_type", "data_length", "data_precision", "data_scale", "nullable", "data_default", "char_used"}}
		cols := map[string][][]any{
			"EMPLOYEES": {
				{"EMPLOYEES", "EMP_ID", int64(1), "NUMBER", nil, nil, nil, "N", nil, nil},
				{"EMPLOYEES", "FIRST_NAME", int64(2), "VARCHAR2", int64(50), nil, nil, "Y", nil, nil},
				{"EMPLOYEES", "DEPT_ID", int64(3), "NUMBER", nil, nil, nil, "Y", nil, nil},
			},
			"DEPARTMENTS": {
				{"DEPARTMENTS", "DEPT_ID", int64(1), "NUMBER", nil, nil, nil, "N", nil, nil},
				{"DEPARTMENTS", "NAME", int64(2), "VARCHAR2", int64(100), nil, nil, "Y", nil, nil},
			},
		}
		for table, rs := range cols {
			if owner != "HR" {
				continue
			}
			if tableFilter != "" && tableFilter != table {
				continue
			}
			rows.Data = append(rows.Data, rs...)
		}
		return rows, nil

	case strings.Contains(sql, "constraint_name = :constraint_name"):
		// QueryConstraintColumns: direct lookup of one constraint's columns,
		// used as the fallback when a targeted refresh's own
		// QueryConsColumns call didn't cover the referenced table.
		constraintName, _ := paramVal(params, "constraint_name").(string)
		rows := &connector.Rows{Columns: []string{"column_name"}}
		if owner == "HR" && constraintName == "DEPT_PK" {
			rows.Data = append(rows.Data, []any{"DEPT_ID"})
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_constraints"):
		rows := &connector.Rows{Columns: []string{"constraint_name", "constraint_type", "table_name", "status", "deferrable", "r_owner", "r_table_name", "delete_rule", "r_constraint_name"}}
		if owner == "HR" {
			if tableFilter == "" || tableFilter == "EMPLOYEES" {
				rows.Data = append(rows.Data,
					[]any{"EMP_PK", "P", "EMPLOYEES", "ENABLED", "NOT DEFERRABLE", nil, nil, nil, nil},
					[]any{"EMP_DEPT_FK", "R", "EMPLOYEES", "ENABLED", "NOT DEFERRABLE", "HR", "DEPARTMENTS", "NO ACTION", "DEPT_PK"},
				)
			}
			if tableFilter == "" || tableFilter == "DEPARTMENTS" {
				rows.Data = append(rows.Data, []any{"DEPT_PK", "P", "DEPARTMENTS", "ENABLED", "NOT DEFERRABLE", nil, nil, nil, nil})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_cons_columns"):
		rows := &connector.Rows{Columns: []string{"constraint_name", "table_name", "column_name", "position"}}
		if owner == "HR" {
			if tableFilter == "" || tableFilter == "EMPLOYEES" {
				rows.Data = append(rows.Data,
					[]any{"EMP_PK", "EMPLOYEES", "EMP_ID", int64(1)},
					[]any{"EMP_DEPT_FK", "EMPLOYEES", "DEPT_ID", int64(1)},
				)
			}
			if tableFilter == "" || tableFilter == "DEPARTMENTS" {
				rows.Data = append(rows.Data, []any{"DEPT_PK", "DEPARTMENTS", "DEPT_ID", int64(1)})
			}
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_col_comments"):
		rows := &connector.Rows{Columns: []string{"table_name", "column_name", "comments"}}
		if owner == "HR" && (tableFilter == "" || tableFilter == "DEPARTMENTS") {
			rows.Data = append(rows.Data, []any{"DEPARTMENTS", "NAME", "Department display name."})
		}
		return rows, nil

	case strings.Contains(sql, "FROM all_indexes"):
		return &connector.Rows{Columns: []string{"index_name", "table_name", "uniqueness", "index_type"}}, nil

	case strings.Contains(sql, "FROM all_ind_columns"):
		return &connector.Rows{Columns: []string{"index_name", "table_name", "column_name", "descend", "column_position"}}, nil

	case strings.Contains(sql, "MAX(last_ddl_time)"):
		return &connector.Rows{Columns: []string{"gen"}, Data: [][]any{{"1"}}}, nil

	case strings.Contains(sql, "SELECT owner, name, type"):
		// QueryDependents: reverse lookup, keyed by referenced_owner/referenced_name.
		return &connector.Rows{Columns: []string{"owner", "name", "type"}}, nil

	case strings.Contains(sql, "FROM all_dependencies"):
		// QueryDependencies: forward lookup, keyed by owner/name.
		return &connector.Rows{Columns: []string{"name", "type", "referenced_owner", "referenced_name", "referenced_type"}}, nil

	case strings.Contains(sql, "FROM all_objects"):
		return &connector.Rows{Columns: []string{"object_name", "object_type", "status", "last_ddl_time"}}, nil

	case strings.Contains(sql, "FROM all_types"):
		return &connector.Rows{Columns: []string{"type_name", "typecode"}}, nil

	case strings.Contains(sql, "FROM all_type_attrs"):
		return &connector.Rows{Columns: []string{"type_name", "attr_name", "attr_type_name", "attr_no"}}, nil
	}

	return &connector.Rows{}, nil
}

func (f *fakeConn) Execute(ctx context.Context, sql string, kind connector.StatementKind, params ...connector.Param) (*connector.ExecResult, error) {
	f.execCount++
	return &connector.ExecResult{RowsAffected: 1}, nil
}

func newTestCache() *Cache {
	return New(Config{TargetSchema: "HR"}, &fakeConn{})
}

func TestGetTableExactLookup(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	tbl, err := c.GetTable(ctx, "employees")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if tbl == nil {
		t.Fatal("GetTable returned nil, want HR.EMPLOYEES")
	}
	if tbl.Schema != "HR" || tbl.Name != "EMPLOYEES" {
		t.Errorf("got %s.%s, want HR.EMPLOYEES", tbl.Schema, tbl.Name)
	}
	if len(tbl.Columns) != 3 {
		t.Errorf("got %d columns, want 3", len(tbl.Columns))
	}
	if len(tbl.PrimaryKey) != 1 || tbl.PrimaryKey[0] != "EMP_ID" {
		t.Errorf("primary key = %v, want [EMP_ID]", tbl.PrimaryKey)
	}
	if len(tbl.ForeignKeys) != 1 || tbl.ForeignKeys[0].TargetTable != "DEPARTMENTS" {
		t.Errorf("foreign keys = %+v, want one referencing DEPARTMENTS", tbl.ForeignKeys)
	}
	fk := tbl.ForeignKeys[0]
	if fk.External {
		t.Errorf("foreign key to DEPARTMENTS (same schema) marked External")
	}
	if len(fk.TargetColumns) != 1 || fk.TargetColumns[0] != "DEPT_ID" {
		t.Errorf("target columns = %v, want [DEPT_ID]", fk.TargetColumns)
	}
}

// TestColumnComments checks that all_col_comments rows reach ColumnRecord.
func TestColumnComments(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	tbl, err := c.GetTable(ctx, "DEPARTMENTS")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	var got *string
	for _, col := range tbl.Columns {
		if col.Name == "NAME" {
			got = col.Comment
		}
	}
	if got == nil || *got != "Department display name." {
		t.Errorf("DEPARTMENTS.NAME comment = %v, want \"Department display name.\"", got)
	}
}

// TestCaseInsensitiveIdentity is invariant 4 from spec.md §8.
func TestCaseInsensitiveIdentity(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	upper, err := c.GetTable(ctx, "EMPLOYEES")
	if err != nil {
		t.Fatalf("GetTable(upper): %v", err)
	}
	lower, err := c.GetTable(ctx, "employees")
	if err != nil {
		t.Fatalf("GetTable(lower): %v", err)
	}
	if upper.Name != lower.Name || upper.Schema != lower.Schema {
		t.Errorf("case-insensitive identity violated: %+v vs %+v", upper, lower)
	}
}

// TestLookupEquivalence is invariant 2: get_table(t) == get_tables([t])[t].
func TestLookupEquivalence(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	single, err := c.GetTable(ctx, "EMPLOYEES")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	batch, err := c.GetTables(ctx, []string{"EMPLOYEES"})
	if err != nil {
		t.Fatalf("GetTables: %v", err)
	}
	if batch["EMPLOYEES"].Name != single.Name || len(batch["EMPLOYEES"].Columns) != len(single.Columns) {
		t.Errorf("lookup equivalence violated: %+v vs %+v", single, batch["EMPLOYEES"])
	}
}

func TestGetTableNotFound(t *testing.T) {
	c := newTestCache()
	tbl, err := c.GetTable(context.Background(), "NO_SUCH_TABLE")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if tbl != nil {
		t.Errorf("GetTable(missing) = %+v, want nil", tbl)
	}
}

// TestRelatedTables is scenario S4 from spec.md §8.
func TestRelatedTables(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	if _, err := c.GetTable(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed GetTable: %v", err)
	}

	rel, err := c.GetRelatedTables(ctx, "DEPARTMENTS")
	if err != nil {
		t.Fatalf("GetRelatedTables: %v", err)
	}
	if len(rel.Outgoing) != 0 {
		t.Errorf("outgoing = %+v, want empty", rel.Outgoing)
	}
	if len(rel.Incoming) != 1 || rel.Incoming[0].Name != "EMPLOYEES" || rel.Incoming[0].Via != "DEPT_ID" {
		t.Errorf("incoming = %+v, want one EMPLOYEES row via DEPT_ID", rel.Incoming)
	}
}

// TestSearchTablesPrefixGlob checks that a prefix glob ("EMP%") returns only
// the cached table with that prefix. The fixture has no family of similarly
// named tables, so the ordering between match tiers is not exercised here.
func TestSearchTablesPrefixGlob(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	if _, err := c.GetTable(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed GetTable: %v", err)
	}
	if _, err := c.GetTable(ctx, "DEPARTMENTS"); err != nil {
		t.Fatalf("seed GetTable: %v", err)
	}

	results, err := c.SearchTables("EMP%", 10)
	if err != nil {
		t.Fatalf("SearchTables: %v", err)
	}
	if len(results) != 1 || results[0].Name != "EMPLOYEES" {
		t.Errorf("SearchTables(EMP%%) = %+v, want [EMPLOYEES]", results)
	}
}

// TestLimitRespect is invariant 6: search_tables(p, k).length <= min(k, 500).
func TestLimitRespect(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	if _, err := c.GetTable(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := c.GetTable(ctx, "DEPARTMENTS"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	results, err := c.SearchTables("%", 1)
	if err != nil {
		t.Fatalf("SearchTables: %v", err)
	}
	if len(results) > 1 {
		t.Errorf("SearchTables with limit=1 returned %d results", len(results))
	}

	results, err = c.SearchTables("%", 10000)
	if err != nil {
		t.Fatalf("SearchTables: %v", err)
	}
	if len(results) > maxLimit {
		t.Errorf("SearchTables returned %d results, want <= %d", len(results), maxLimit)
	}
}

// TestColumnIndexCoverage samples invariant 3 (every column of every cached
// table appears in the column index) for one column, EMPLOYEES.DEPT_ID.
func TestColumnIndexCoverage(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	tbl, err := c.GetTable(ctx, "EMPLOYEES")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}

	matches, err := c.SearchColumns("dept_id", 10)
	if err != nil {
		t.Fatalf("SearchColumns: %v", err)
	}
	found := false
	for _, m := range matches {
		if m.Table == tbl.Name && strings.EqualFold(m.Column, "DEPT_ID") {
			found = true
		}
	}
	if !found {
		t.Errorf("SearchColumns(dept_id) = %+v, missing EMPLOYEES.DEPT_ID", matches)
	}
}

// TestRebuildIdempotent is invariant 8: rebuilding without catalog change
// short-circuits (Built=false) but leaves the same content behind.
func TestRebuildIdempotent(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	first, err := c.Rebuild(ctx)
	if err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	if !first.Built {
		t.Fatalf("first Rebuild should run a full sweep")
	}

	second, err := c.Rebuild(ctx)
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if second.Built {
		t.Errorf("second Rebuild ran a full sweep despite unchanged generation")
	}
	if second.Fingerprint != first.Fingerprint {
		t.Errorf("fingerprint changed across an idempotent rebuild")
	}
}

func TestInvalidateTable(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	if _, err := c.GetTable(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if c.Size() == 0 {
		t.Fatal("expected EMPLOYEES to be cached before invalidation")
	}

	c.InvalidateTable("HR", "EMPLOYEES")

	c.mu.RLock()
	_, stillCached := c.ix.byQualified["HR.EMPLOYEES"]
	c.mu.RUnlock()
	if stillCached {
		t.Error("InvalidateTable left a stale entry in byQualified")
	}
}

func TestInvalidateFromDDL(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	if _, err := c.GetTable(ctx, "EMPLOYEES"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c.InvalidateFromDDL(ctx, "ALTER TABLE HR.EMPLOYEES ADD (EMAIL VARCHAR2(100))")

	c.mu.RLock()
	_, stillCached := c.ix.byQualified["HR.EMPLOYEES"]
	c.mu.RUnlock()
	if stillCached {
		t.Error("InvalidateFromDDL should have dropped HR.EMPLOYEES")
	}
}
