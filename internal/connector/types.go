package connector

// Rows is the materialized result of fetch_all / read_query: a fixed column
// list plus one slice of values per row, in column order.
type Rows struct {
	Columns []string
	Data    [][]any
}

// ExecResult is the outcome of a DML/DDL/PLSQL execute call.
type ExecResult struct {
	RowsAffected int64
}

// SessionInfo reports the Oracle version banner, current schema, and the
// NLS settings relevant to identifier comparison (spec.md §4.1).
type SessionInfo struct {
	Product          string
	VersionBanner    string
	CurrentSchema    string
	ConnectionMode   string // "thick" or "thin"
	NLSSort          string
	NLSComp          string
}

// Param is a named bind parameter for the driver-level placeholder binding
// used by every catalog and user SQL statement; never string-interpolated.
type Param struct {
	Name  string
	Value any
}
