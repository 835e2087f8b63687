package connector

import "testing"

func TestLeadingKeyword(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM dual", "SELECT"},
		{"  \n\t select 1 from dual", "SELECT"},
		{"-- comment\nSELECT 1 FROM dual", "SELECT"},
		{"/* block comment */ INSERT INTO t VALUES (1)", "INSERT"},
		{"-- only a comment\n", ""},
		{"", ""},
		{"WITH x AS (SELECT 1 FROM dual) SELECT * FROM x", "WITH"},
	}
	for _, c := range cases {
		got := leadingKeyword(c.sql)
		if got != c.want {
			t.Errorf("leadingKeyword(%q) = %q, want %q", c.sql, got, c.want)
		}
	}
}

func TestCheckGate(t *testing.T) {
	cases := []struct {
		name    string
		sql     string
		want    StatementKind
		wantErr bool
	}{
		{"select matches", "SELECT * FROM dual", KindSelect, false},
		{"select mismatched as ddl", "SELECT * FROM dual", KindDDL, true},
		{"ddl create", "CREATE TABLE t (x NUMBER)", KindDDL, false},
		{"ddl alter", "ALTER TABLE t ADD (y NUMBER)", KindDDL, false},
		{"dml insert", "INSERT INTO t VALUES (1)", KindDML, false},
		{"dml delete mismatched as select", "DELETE FROM t", KindSelect, true},
		{"plsql begin", "BEGIN NULL; END;", KindPLSQL, false},
		{"plsql declare with ddl", "DECLARE x NUMBER; BEGIN EXECUTE IMMEDIATE 'DROP TABLE t'; END;", KindPLSQL, false},
		{"empty statement", "   ", KindSelect, true},
		{"unrecognized keyword", "VACUUM t", KindSelect, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := checkGate(c.sql, c.want)
			if c.wantErr && err == nil {
				t.Fatalf("checkGate(%q, %v) = nil error, want error", c.sql, c.want)
			}
			if !c.wantErr && err != nil {
				t.Fatalf("checkGate(%q, %v) = %v, want nil", c.sql, c.want, err)
			}
		})
	}
}
