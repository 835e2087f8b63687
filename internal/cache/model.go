// Package cache implements L2: the persistent, versioned index of catalog
// objects described in spec.md §3, with targeted incremental refresh and
// bounded-answer lookup/search operations for L3.
package cache

import "time"

// TableKind enumerates the relation kinds the cache tracks as tables.
type TableKind string

const (
	KindTable            TableKind = "TABLE"
	KindView             TableKind = "VIEW"
	KindMaterializedView TableKind = "MATERIALIZED_VIEW"
)

// FKAction is the referential action a foreign key takes ON DELETE.
type FKAction string

const (
	FKNoAction FKAction = "NO_ACTION"
	FKCascade  FKAction = "CASCADE"
	FKSetNull  FKAction = "SET_NULL"
)

// ConstraintStatus mirrors Oracle's ENABLED/DISABLED constraint state.
type ConstraintStatus string

const (
	StatusEnabled  ConstraintStatus = "ENABLED"
	StatusDisabled ConstraintStatus = "DISABLED"
)

// PLSQLKind enumerates the non-table catalog object kinds tracked for
// get_pl_sql_objects / get_object_source.
type PLSQLKind string

const (
	PLSQLProcedure    PLSQLKind = "PROCEDURE"
	PLSQLFunction     PLSQLKind = "FUNCTION"
	PLSQLPackage      PLSQLKind = "PACKAGE"
	PLSQLPackageBody  PLSQLKind = "PACKAGE_BODY"
	PLSQLTrigger      PLSQLKind = "TRIGGER"
	PLSQLType         PLSQLKind = "TYPE"
	PLSQLTypeBody     PLSQLKind = "TYPE_BODY"
	PLSQLSequence     PLSQLKind = "SEQUENCE"
	PLSQLSynonym      PLSQLKind = "SYNONYM"
	PLSQLView         PLSQLKind = "VIEW"
)

// ColumnRecord is one column of a TableRecord. Position is 1-based and dense
// within the owning table (spec.md invariant: positions are dense).
type ColumnRecord struct {
	Name        string
	Position    int
	DataType    string
	Nullable    bool
	DefaultExpr *string
	Comment     *string
}

// ForeignKeyRecord is one foreign key constraint on a TableRecord.
type ForeignKeyRecord struct {
	Name          string
	LocalColumns  []string
	TargetSchema  string
	TargetTable   string
	TargetColumns []string
	OnDelete      FKAction
	Deferrable    bool
	Status        ConstraintStatus
	// External is true when TargetSchema differs from the cache's target
	// schema, whether or not a TableRecord for it exists. The edge is never silently
	// dropped; it is flagged instead (spec.md invariant 5).
	External bool
}

// IndexColumn is one column participating in an IndexRecord, in order.
type IndexColumn struct {
	Name string
	Desc bool // true = DESC, false = ASC
}

// IndexRecord is one index defined on a TableRecord.
type IndexRecord struct {
	Name      string
	Unique    bool
	Columns   []IndexColumn
	IndexType string
}

// TableRecord is the central catalog entity: a table, view, or materialized
// view together with its full structural description.
type TableRecord struct {
	Schema           string
	Name             string
	Kind             TableKind
	Columns          []ColumnRecord
	PrimaryKey       []string
	UniqueKeys       [][]string
	ForeignKeys      []ForeignKeyRecord
	CheckConstraints []CheckRecord
	Indexes          []IndexRecord
	Comment          *string
	LastDDL          time.Time
}

// CheckRecord is one CHECK constraint on a TableRecord.
type CheckRecord struct {
	Name       string
	Expression string
	Status     ConstraintStatus
}

// PLSQLObject is a non-table catalog object: procedure, function, package,
// trigger, type, sequence, or synonym.
type PLSQLObject struct {
	Schema         string
	Name           string
	Kind           PLSQLKind
	Status         string
	LastDDL        time.Time
	SourceAvailable bool
}

// ObjectRef identifies a catalog object by schema/name/kind, the unit of
// granularity for DependencyEdge and invalidation.
type ObjectRef struct {
	Schema string
	Name   string
	Kind   string
}

// DependencyEdge is a directed edge from a referrer to what it references,
// at object granularity (spec.md §3).
type DependencyEdge struct {
	Referrer   ObjectRef
	Referenced ObjectRef
}

// UDTAttribute is one attribute of a UserDefinedType.
type UDTAttribute struct {
	Name     string
	DataType string
}

// UserDefinedType is an Oracle OBJECT/COLLECTION/VARRAY type.
type UserDefinedType struct {
	Schema     string
	Name       string
	TypeCode   string
	Attributes []UDTAttribute
}

// Fingerprint identifies a cache snapshot bound to a (target, schema,
// generation) triple. It is computed from the Oracle version banner, the
// target schema name, and the monotonic catalog-generation counter derived
// from a MAX(LAST_DDL_TIME) aggregate.
type Fingerprint [32]byte

// BuildStats summarizes the outcome of Rebuild or LoadOrBuild (full sweep,
// fingerprint short-circuit, or load from disk), returned by
// rebuild_schema_cache. Targeted refreshes produce no BuildStats.
type BuildStats struct {
	Built       bool
	DurationMS  int64
	Tables      int
	Fingerprint Fingerprint
}
