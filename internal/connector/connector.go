// Package connector implements L1: a bounded pool of Oracle sessions and a
// single execution primitive, run(statement, params) -> rows | affected,
// gated by statement kind. It hides the thin/thick linkage distinction
// behind the THICK_MODE configuration switch selected once at startup —
// never via runtime import magic.
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/godror/godror"
	"go.uber.org/zap"

	"github.com/oracleschema/mcp-server/internal/apperr"
)

// Config is the subset of process configuration the connector needs.
type Config struct {
	ConnectionString   string
	ThickMode          bool
	OracleClientLibDir string
	PoolSize           int
	PoolAcquireTimeout time.Duration
}

// Connector is L1's public surface: fetch_all, fetch_stream, execute, and
// session_info, all routed through a bounded session pool with retry on
// transient faults.
type Connector struct {
	db   *sql.DB
	pool *pool
	cfg  Config
}

// New opens the pool eagerly and fails early (exit code 2, per spec.md §6)
// if the driver cannot reach the database — it never silently falls back
// to a degraded mode.
func New(ctx context.Context, cfg Config) (*Connector, error) {
	logConnect(cfg)
	db, err := openDriver(cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConnectionError, "opening oracle driver", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.ConnectionError, "database unreachable at startup", err)
	}

	c := &Connector{
		db:   db,
		pool: newPool(db, cfg.PoolSize, cfg.PoolAcquireTimeout),
		cfg:  cfg,
	}
	return c, nil
}

// openDriver selects one of two precompiled code paths by THICK_MODE. Both
// register through database/sql's "godror" driver name; THICK_MODE only
// changes the connection parameters (native OCI client library directory
// vs. none), never which driver package is imported.
func openDriver(cfg Config) (*sql.DB, error) {
	dsn := cfg.ConnectionString
	if cfg.ThickMode {
		dsn = dsn + "?libDir=" + cfg.OracleClientLibDir
	}
	return sql.Open("godror", dsn)
}

func (c *Connector) Close() error {
	return c.db.Close()
}

// FetchAll returns all rows for sql bound to params. It is used for every
// SELECT-shaped catalog query and for the gated read_query tool.
func (c *Connector) FetchAll(ctx context.Context, sql string, params ...Param) (*Rows, error) {
	var out *Rows
	err := withRetry(ctx, func() error {
		s, err := c.pool.acquire(ctx)
		if err != nil {
			return err
		}
		defer s.release()

		rows, err := c.db.QueryContext(ctx, sql, bindArgs(params)...)
		if err != nil {
			return queryErr(err)
		}
		defer rows.Close()

		r, err := scanAll(rows)
		if err != nil {
			return queryErr(err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Query is FetchAll with the statement-kind gate applied first; read_query
// routes through this rather than FetchAll directly so the gate is never
// bypassable from the tool layer (spec.md invariant 7).
func (c *Connector) Query(ctx context.Context, sql string, kind StatementKind, params ...Param) (*Rows, error) {
	if err := checkGate(sql, kind); err != nil {
		return nil, err
	}
	return c.FetchAll(ctx, sql, params...)
}

// RowFunc is invoked once per row by FetchStream; returning false stops
// iteration early and releases the session promptly.
type RowFunc func(columns []string, row []any) (cont bool)

// FetchStream produces a lazy, finite sequence of rows via callback rather
// than materializing the full result set; context cancellation releases the
// session promptly (spec.md §4.1).
func (c *Connector) FetchStream(ctx context.Context, query string, fn RowFunc, params ...Param) error {
	return withRetry(ctx, func() error {
		s, err := c.pool.acquire(ctx)
		if err != nil {
			return err
		}
		defer s.release()

		rows, err := c.db.QueryContext(ctx, query, bindArgs(params)...)
		if err != nil {
			return queryErr(err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return queryErr(err)
		}

		for rows.Next() {
			select {
			case <-ctx.Done():
				return apperr.Wrap(apperr.Timeout, "fetch_stream canceled", ctx.Err())
			default:
			}
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return queryErr(err)
			}
			if !fn(cols, vals) {
				break
			}
		}
		return queryErr(rows.Err())
	})
}

// Execute runs sql under the statement-kind gate: kind must match the
// leading keyword of sql, or DisallowedStatement is returned and the
// statement never reaches the driver (spec.md invariant 7).
func (c *Connector) Execute(ctx context.Context, sql string, kind StatementKind, params ...Param) (*ExecResult, error) {
	if err := checkGate(sql, kind); err != nil {
		return nil, err
	}

	var out *ExecResult
	err := withRetry(ctx, func() error {
		s, err := c.pool.acquire(ctx)
		if err != nil {
			return err
		}
		defer s.release()

		res, err := c.db.ExecContext(ctx, sql, bindArgs(params)...)
		if err != nil {
			return queryErr(err)
		}
		n, _ := res.RowsAffected()
		out = &ExecResult{RowsAffected: n}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SessionInfo reports the Oracle version banner, current schema, and NLS
// settings relevant to identifier comparison.
func (c *Connector) SessionInfo(ctx context.Context) (*SessionInfo, error) {
	s, err := c.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release()

	info := &SessionInfo{Product: "Oracle"}
	if c.cfg.ThickMode {
		info.ConnectionMode = "thick"
	} else {
		info.ConnectionMode = "thin"
	}

	row := c.db.QueryRowContext(ctx, QueryVersionBanner)
	_ = row.Scan(&info.VersionBanner)

	row = c.db.QueryRowContext(ctx, "SELECT SYS_CONTEXT('USERENV','CURRENT_SCHEMA') FROM DUAL")
	_ = row.Scan(&info.CurrentSchema)

	row = c.db.QueryRowContext(ctx, "SELECT value FROM nls_session_parameters WHERE parameter = 'NLS_SORT'")
	_ = row.Scan(&info.NLSSort)

	row = c.db.QueryRowContext(ctx, "SELECT value FROM nls_session_parameters WHERE parameter = 'NLS_COMP'")
	_ = row.Scan(&info.NLSComp)

	return info, nil
}

func bindArgs(params []Param) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

func scanAll(rows *sql.Rows) (*Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out.Data = append(out.Data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func queryErr(err error) error {
	if err == nil {
		return nil
	}
	code := vendorCode(err)
	e := apperr.Wrap(apperr.QueryError, fmt.Sprintf("query failed: %v", err), err)
	if code != "" {
		e = e.WithCode(code)
	}
	return e
}

// logConnect emits a single connect-attempt log line with the connection
// string redacted, matching the teacher's zap field-grouping convention.
func logConnect(cfg Config) {
	zap.L().Info("connecting to oracle",
		zap.Bool("thick_mode", cfg.ThickMode),
		zap.Int("pool_size", cfg.PoolSize),
	)
}
