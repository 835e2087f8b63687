package cache

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/oracleschema/mcp-server/internal/apperr"
	"github.com/oracleschema/mcp-server/internal/connector"
)

// QueryRunner is the narrow slice of Connector the cache depends on. It lets
// tests substitute a small hand-written fake instead of a real Oracle
// session, the same way the teacher's resolver tests substitute a DemoCatalog
// implementing a two-method interface.
type QueryRunner interface {
	FetchAll(ctx context.Context, sql string, params ...connector.Param) (*connector.Rows, error)
	Execute(ctx context.Context, sql string, kind connector.StatementKind, params ...connector.Param) (*connector.ExecResult, error)
}

// Config configures the cache's scope and persistence location.
type Config struct {
	TargetSchema string
	CacheDir     string
}

// Cache is L2: an in-memory, disk-backed index of the catalog objects of a
// single (connection-target, schema) pair. Many concurrent readers, one
// writer at a time for structural updates (spec.md §5).
type Cache struct {
	cfg  Config
	conn QueryRunner

	mu          sync.RWMutex
	ix          *indexes
	plsql       map[string]*PLSQLObject // key: refKey(ObjectRef)
	udts        map[string]*UserDefinedType
	fingerprint Fingerprint

	// fineGrained holds one mutex per qualified table name so targeted
	// refreshes of the same table are serialized and their catalog queries
	// run without holding mu; the final merge into the index still takes
	// mu's write lock.
	fineGrained sync.Map // map[string]*sync.Mutex, keyed by qualified table name

	rebuildCond *sync.Cond
	rebuilding  bool
}

// New constructs an empty Cache. Call LoadOrBuild to populate it from disk
// or from a full catalog sweep.
func New(cfg Config, conn QueryRunner) *Cache {
	c := &Cache{
		cfg:   cfg,
		conn:  conn,
		ix:    newIndexes(),
		plsql: make(map[string]*PLSQLObject),
		udts:  make(map[string]*UserDefinedType),
	}
	c.rebuildCond = sync.NewCond(&c.mu)
	return c
}

// GetTable implements get_table(name): case-insensitive lookup with
// optional fully-qualified "schema.name" form. On miss it performs a
// targeted refresh against the live catalog rather than a full rebuild.
func (c *Cache) GetTable(ctx context.Context, name string) (*TableRecord, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "table name must not be empty")
	}

	schema, unqual := splitQualified(name, c.cfg.TargetSchema)

	c.mu.RLock()
	if t, ok := c.ix.byQualified[qualify(schema, unqual)]; ok {
		defer c.mu.RUnlock()
		return cloneTable(t), nil
	}
	if schema == c.cfg.TargetSchema {
		if t, ok := c.ix.getByUnqualifiedName(strings.ToUpper(unqual)); ok {
			defer c.mu.RUnlock()
			return cloneTable(t), nil
		}
	}
	c.mu.RUnlock()

	t, err := c.targetedRefresh(ctx, schema, unqual)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil // NotFound: returned as a structured result, not a tool error
	}
	return cloneTable(t), nil
}

// GetTables implements get_tables(names): batched lookup returning a map
// keyed by each name exactly as given (a nil value means NotFound). The map
// does not preserve the input order of names.
func (c *Cache) GetTables(ctx context.Context, names []string) (map[string]*TableRecord, error) {
	out := make(map[string]*TableRecord, len(names))
	for _, n := range names {
		t, err := c.GetTable(ctx, n)
		if err != nil {
			return nil, err
		}
		out[n] = t // nil means NotFound
	}
	return out, nil
}

// SearchTables implements search_tables(pattern, limit).
func (c *Cache) SearchTables(pattern string, limit int) ([]*TableRecord, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "pattern must not be empty")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := searchNames(c.ix.sortedNames, pattern, limit)
	out := make([]*TableRecord, 0, len(names))
	for _, n := range names {
		if t, ok := c.ix.getByUnqualifiedName(n); ok {
			out = append(out, cloneTable(t))
		}
	}
	return out, nil
}

// ColumnMatch is one row of search_columns' result.
type ColumnMatch struct {
	Schema   string
	Table    string
	Column   string
	DataType string
}

// SearchColumns implements search_columns(fragment, limit): matching rule
// identical to search_tables, applied to column names. Results are ordered
// by column-name tier, then column name, then qualified table name within
// each column; table names are not sorted across different columns of the
// same tier.
func (c *Cache) SearchColumns(fragment string, limit int) ([]ColumnMatch, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "fragment must not be empty")
	}
	limit = clampLimit(limit)

	c.mu.RLock()
	defer c.mu.RUnlock()

	colNames := make([]string, 0, len(c.ix.byColumn))
	for cn := range c.ix.byColumn {
		colNames = append(colNames, cn)
	}
	matchedCols := searchNames(sortedCopy(colNames), fragment, len(colNames))

	var out []ColumnMatch
	for _, cn := range matchedCols {
		tableKeys := make([]string, 0, len(c.ix.byColumn[cn]))
		for k := range c.ix.byColumn[cn] {
			tableKeys = append(tableKeys, k)
		}
		sortedKeys := sortedCopy(tableKeys)
		for _, key := range sortedKeys {
			t := c.ix.byQualified[key]
			for _, col := range t.Columns {
				if strings.ToUpper(col.Name) == cn {
					out = append(out, ColumnMatch{
						Schema: t.Schema, Table: t.Name,
						Column: col.Name, DataType: col.DataType,
					})
					if len(out) >= limit {
						return out, nil
					}
				}
			}
		}
	}
	return out, nil
}

// RelatedTables is the result of get_related_tables: one foreign-key hop in
// each direction.
type RelatedTables struct {
	Incoming []RelatedRef
	Outgoing []RelatedRef
}

// RelatedRef names a related table and the column that links to it.
type RelatedRef struct {
	Schema string
	Name   string
	Via    string
}

// GetRelatedTables implements get_related_tables(name).
func (c *Cache) GetRelatedTables(ctx context.Context, name string) (*RelatedTables, error) {
	t, err := c.GetTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.New(apperr.NotFound, "table not found: "+name)
	}

	out := &RelatedTables{}
	for _, fk := range t.ForeignKeys {
		via := ""
		if len(fk.LocalColumns) > 0 {
			via = fk.LocalColumns[0]
		}
		out.Outgoing = append(out.Outgoing, RelatedRef{Schema: fk.TargetSchema, Name: fk.TargetTable, Via: via})
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, other := range c.ix.byQualified {
		for _, fk := range other.ForeignKeys {
			if strings.EqualFold(fk.TargetSchema, t.Schema) && strings.EqualFold(fk.TargetTable, t.Name) {
				via := ""
				if len(fk.LocalColumns) > 0 {
					via = fk.LocalColumns[0]
				}
				out.Incoming = append(out.Incoming, RelatedRef{Schema: other.Schema, Name: other.Name, Via: via})
			}
		}
	}
	return out, nil
}

// GetConstraints returns the PK/unique/FK/check constraints of a table.
func (c *Cache) GetConstraints(ctx context.Context, name string) (*TableRecord, error) {
	return c.GetTable(ctx, name)
}

// GetIndexes returns the indexes of a table.
func (c *Cache) GetIndexes(ctx context.Context, name string) ([]IndexRecord, error) {
	t, err := c.GetTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.New(apperr.NotFound, "table not found: "+name)
	}
	return t.Indexes, nil
}

// Fingerprint returns the cache's current snapshot fingerprint.
func (c *Cache) Fingerprint() Fingerprint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fingerprint
}

// DefaultSchema returns the schema unqualified lookups resolve against.
func (c *Cache) DefaultSchema() string {
	return c.cfg.TargetSchema
}

// Size returns the number of TableRecords currently cached.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ix.byQualified)
}

// splitQualified splits "schema.name" into (schema, name), defaulting
// schema to defaultSchema when name carries no qualifier.
func splitQualified(name, defaultSchema string) (schema, unqual string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return strings.ToUpper(name[:i]), name[i+1:]
	}
	return defaultSchema, name
}

func sortedCopy(xs []string) []string {
	out := append([]string(nil), xs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func cloneTable(t *TableRecord) *TableRecord {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Columns = append([]ColumnRecord(nil), t.Columns...)
	cp.PrimaryKey = append([]string(nil), t.PrimaryKey...)
	cp.ForeignKeys = append([]ForeignKeyRecord(nil), t.ForeignKeys...)
	cp.Indexes = append([]IndexRecord(nil), t.Indexes...)
	cp.CheckConstraints = append([]CheckRecord(nil), t.CheckConstraints...)
	cp.UniqueKeys = append([][]string(nil), t.UniqueKeys...)
	return &cp
}

func logCacheEvent(msg string, fields ...zap.Field) {
	zap.L().Debug(msg, fields...)
}
