package connector

import (
	"strings"

	"github.com/oracleschema/mcp-server/internal/apperr"
)

// StatementKind is one of the four SQL-tool families gated by the connector.
type StatementKind string

const (
	KindSelect StatementKind = "SELECT"
	KindDDL    StatementKind = "DDL"
	KindDML    StatementKind = "DML"
	KindPLSQL  StatementKind = "PLSQL"
)

var ddlKeywords = map[string]bool{
	"CREATE": true, "ALTER": true, "DROP": true, "TRUNCATE": true,
	"RENAME": true, "COMMENT": true, "GRANT": true, "REVOKE": true,
}

var dmlKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
}

var plsqlKeywords = map[string]bool{
	"BEGIN": true, "DECLARE": true, "CALL": true,
}

// leadingKeyword returns the first keyword of sql after stripping leading
// whitespace and comments (both -- and /* */ forms), upper-cased.
func leadingKeyword(sql string) string {
	s := sql
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		}
		break
	}
	end := 0
	for end < len(s) && (isWordChar(s[end])) {
		end++
	}
	if end == 0 {
		return ""
	}
	return strings.ToUpper(s[:end])
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

// classify maps a leading keyword to the statement kind it belongs to.
func classify(keyword string) (StatementKind, bool) {
	switch {
	case keyword == "SELECT" || keyword == "WITH":
		return KindSelect, true
	case ddlKeywords[keyword]:
		return KindDDL, true
	case dmlKeywords[keyword]:
		return KindDML, true
	case plsqlKeywords[keyword]:
		// Anonymous PL/SQL blocks (BEGIN/DECLARE) may themselves contain DDL;
		// exec_pro_sql is gated only on the leading keyword per spec.md §9's
		// open question, resolved here in favor of "yes".
		return KindPLSQL, true
	}
	return "", false
}

// checkGate enforces the statement-kind gate: the first keyword of sql must
// belong to the requested kind, or DisallowedStatement is returned and the
// statement never reaches the driver.
func checkGate(sql string, want StatementKind) error {
	kw := leadingKeyword(sql)
	if kw == "" {
		return apperr.New(apperr.InvalidArgument, "empty or comment-only statement")
	}
	got, ok := classify(kw)
	if !ok {
		return apperr.New(apperr.DisallowedStatement, "unrecognized leading keyword: "+kw)
	}
	if got != want {
		return apperr.New(apperr.DisallowedStatement,
			"statement kind "+string(got)+" does not match gate "+string(want))
	}
	return nil
}
