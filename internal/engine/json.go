package engine

import "github.com/oracleschema/mcp-server/internal/cache"

// The JSON shapes below are deliberately plain structs with explicit,
// alphabetically-unsorted-but-fixed field order (Go's encoding/json emits
// struct fields in declaration order), matching spec.md §6's requirement
// that every structural tool response serialize to a stable field order.

type ColumnJSON struct {
	Name        string  `json:"name"`
	Position    int     `json:"position"`
	DataType    string  `json:"data_type"`
	Nullable    bool    `json:"nullable"`
	DefaultExpr *string `json:"default_expr,omitempty"`
	Comment     *string `json:"comment,omitempty"`
}

type ForeignKeyRefJSON struct {
	Schema string   `json:"schema"`
	Table  string   `json:"table"`
	Columns []string `json:"columns"`
}

type ForeignKeyJSON struct {
	Name         string            `json:"name"`
	LocalColumns []string          `json:"local_columns"`
	Ref          ForeignKeyRefJSON `json:"ref"`
	OnDelete     string            `json:"on_delete"`
	Deferrable   bool              `json:"deferrable"`
	Status       string            `json:"status"`
	External     bool              `json:"external"`
}

type IndexColumnJSON struct {
	Name string `json:"name"`
	Desc bool   `json:"desc"`
}

type IndexJSON struct {
	Name      string            `json:"name"`
	Unique    bool              `json:"unique"`
	Columns   []IndexColumnJSON `json:"columns"`
	IndexType string            `json:"index_type"`
}

type CheckJSON struct {
	Name       string `json:"name"`
	Expression string `json:"expression,omitempty"`
	Status     string `json:"status"`
}

type TableRecordJSON struct {
	Schema           string           `json:"schema"`
	Name             string           `json:"name"`
	Kind             string           `json:"kind"`
	Columns          []ColumnJSON     `json:"columns"`
	PrimaryKey       []string         `json:"primary_key,omitempty"`
	UniqueKeys       [][]string       `json:"unique_keys,omitempty"`
	ForeignKeys      []ForeignKeyJSON `json:"foreign_keys,omitempty"`
	CheckConstraints []CheckJSON      `json:"check_constraints,omitempty"`
	Indexes          []IndexJSON      `json:"indexes,omitempty"`
	Comment          *string          `json:"comment,omitempty"`
}

type ConstraintsJSON struct {
	PrimaryKey       []string         `json:"primary_key,omitempty"`
	UniqueKeys       [][]string       `json:"unique_keys,omitempty"`
	ForeignKeys      []ForeignKeyJSON `json:"foreign_keys,omitempty"`
	CheckConstraints []CheckJSON      `json:"check_constraints,omitempty"`
}

type ObjectRefJSON struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Via    string `json:"via,omitempty"`
}

type PLSQLObjectJSON struct {
	Schema          string `json:"schema"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	Status          string `json:"status"`
	SourceAvailable bool   `json:"source_available"`
}

type UDTAttributeJSON struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

type UDTJSON struct {
	Schema     string             `json:"schema"`
	Name       string             `json:"name"`
	TypeCode   string             `json:"type_code"`
	Attributes []UDTAttributeJSON `json:"attributes,omitempty"`
}

func tableToJSON(t *cache.TableRecord) TableRecordJSON {
	out := TableRecordJSON{
		Schema: t.Schema, Name: t.Name, Kind: string(t.Kind),
		PrimaryKey: t.PrimaryKey, UniqueKeys: t.UniqueKeys, Comment: t.Comment,
	}
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, ColumnJSON{
			Name: c.Name, Position: c.Position, DataType: c.DataType,
			Nullable: c.Nullable, DefaultExpr: c.DefaultExpr, Comment: c.Comment,
		})
	}
	for _, fk := range t.ForeignKeys {
		out.ForeignKeys = append(out.ForeignKeys, ForeignKeyJSON{
			Name: fk.Name, LocalColumns: fk.LocalColumns,
			Ref:        ForeignKeyRefJSON{Schema: fk.TargetSchema, Table: fk.TargetTable, Columns: fk.TargetColumns},
			OnDelete:   string(fk.OnDelete),
			Deferrable: fk.Deferrable,
			Status:     string(fk.Status),
			External:   fk.External,
		})
	}
	for _, chk := range t.CheckConstraints {
		out.CheckConstraints = append(out.CheckConstraints, CheckJSON{
			Name: chk.Name, Expression: chk.Expression, Status: string(chk.Status),
		})
	}
	for _, idx := range t.Indexes {
		ij := IndexJSON{Name: idx.Name, Unique: idx.Unique, IndexType: idx.IndexType}
		for _, c := range idx.Columns {
			ij.Columns = append(ij.Columns, IndexColumnJSON{Name: c.Name, Desc: c.Desc})
		}
		out.Indexes = append(out.Indexes, ij)
	}
	return out
}

func constraintsToJSON(t *cache.TableRecord) ConstraintsJSON {
	full := tableToJSON(t)
	return ConstraintsJSON{
		PrimaryKey: full.PrimaryKey, UniqueKeys: full.UniqueKeys,
		ForeignKeys: full.ForeignKeys, CheckConstraints: full.CheckConstraints,
	}
}

func objectRefToJSON(r cache.ObjectRef) ObjectRefJSON {
	return ObjectRefJSON{Schema: r.Schema, Name: r.Name, Kind: r.Kind}
}

func plsqlToJSON(o *cache.PLSQLObject) PLSQLObjectJSON {
	return PLSQLObjectJSON{
		Schema: o.Schema, Name: o.Name, Kind: string(o.Kind),
		Status: o.Status, SourceAvailable: o.SourceAvailable,
	}
}

func udtToJSON(u *cache.UserDefinedType) UDTJSON {
	out := UDTJSON{Schema: u.Schema, Name: u.Name, TypeCode: u.TypeCode}
	for _, a := range u.Attributes {
		out.Attributes = append(out.Attributes, UDTAttributeJSON{Name: a.Name, DataType: a.DataType})
	}
	return out
}
