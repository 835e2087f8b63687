package engine

import (
	"context"

	"github.com/oracleschema/mcp-server/internal/connector"
)

// ReadQueryResultJSON is the result of read_query.
type ReadQueryResultJSON struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// ReadQuery implements read_query(sql, params): SELECT-gated.
func (e *Engine) ReadQuery(ctx context.Context, sql string, params []connector.Param) (*ReadQueryResultJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	rows, err := e.Conn.Query(ctx, sql, connector.KindSelect, params...)
	if err != nil {
		return nil, err
	}
	return &ReadQueryResultJSON{Columns: rows.Columns, Rows: rows.Data, RowCount: len(rows.Data)}, nil
}

// ExecResultJSON is the result of exec_ddl_sql / exec_pro_sql.
type ExecResultJSON struct {
	OK bool `json:"ok"`
}

// ExecDDLSQL implements exec_ddl_sql(sql): DDL-gated, invalidates the cache
// entry it targets on success.
func (e *Engine) ExecDDLSQL(ctx context.Context, sql string) (*ExecResultJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if _, err := e.Conn.Execute(ctx, sql, connector.KindDDL); err != nil {
		return nil, err
	}
	e.Cache.InvalidateFromDDL(ctx, sql)
	return &ExecResultJSON{OK: true}, nil
}

// ExecDMLResultJSON is the result of exec_dml_sql.
type ExecDMLResultJSON struct {
	Affected int64 `json:"affected"`
}

// ExecDMLSQL implements exec_dml_sql(sql, params): DML-gated.
func (e *Engine) ExecDMLSQL(ctx context.Context, sql string, params []connector.Param) (*ExecDMLResultJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	res, err := e.Conn.Execute(ctx, sql, connector.KindDML, params...)
	if err != nil {
		return nil, err
	}
	return &ExecDMLResultJSON{Affected: res.RowsAffected}, nil
}

// ExecProSQL implements exec_pro_sql(block): PL/SQL-gated. Anonymous blocks
// that themselves issue DDL are allowed (spec.md §9's stated assumption),
// gated only on the leading BEGIN/DECLARE/CALL keyword; a conservative
// whole-schema invalidation follows since the block's internal DDL targets
// can't be parsed from the leading keyword alone.
func (e *Engine) ExecProSQL(ctx context.Context, block string) (*ExecResultJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if _, err := e.Conn.Execute(ctx, block, connector.KindPLSQL); err != nil {
		return nil, err
	}
	e.Cache.InvalidateSchema()
	return &ExecResultJSON{OK: true}, nil
}
