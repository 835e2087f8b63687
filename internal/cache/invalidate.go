package cache

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ddlTargetPattern extracts the object kind and qualified name from the
// leading clause of a DDL statement, generalized from the fan-out matching
// the teacher's wal consumer did against live queries: there, a changed
// table name was matched against each subscription's declared dependencies;
// here, a DDL statement's named target is matched against cached entries to
// invalidate.
var ddlTargetPattern = regexp.MustCompile(
	`(?is)^\s*(?:CREATE|ALTER|DROP)\s+(?:OR\s+REPLACE\s+)?(TABLE|VIEW|MATERIALIZED\s+VIEW|INDEX|PROCEDURE|FUNCTION|PACKAGE(?:\s+BODY)?|TRIGGER|TYPE(?:\s+BODY)?|SEQUENCE|SYNONYM)\s+(?:IF\s+EXISTS\s+)?"?([A-Za-z0-9_$#]+)"?(?:\."?([A-Za-z0-9_$#]+)"?)?`,
)

// InvalidateFromDDL inspects a just-executed DDL statement and invalidates
// whatever cached entry it targets, falling back to a whole-schema
// invalidation when the statement can't be confidently parsed (spec.md
// §4.2's "never silently serve stale structure after exec_ddl_sql").
func (c *Cache) InvalidateFromDDL(ctx context.Context, sql string) {
	m := ddlTargetPattern.FindStringSubmatch(sql)
	if m == nil {
		c.InvalidateSchema()
		return
	}

	kind := strings.ToUpper(strings.Join(strings.Fields(m[1]), "_"))
	first := m[2]
	second := m[3]

	schema := c.cfg.TargetSchema
	name := first
	if second != "" {
		schema = strings.ToUpper(first)
		name = second
	}

	switch kind {
	case "TABLE", "VIEW", "MATERIALIZED_VIEW":
		c.InvalidateTable(schema, name)
	default:
		c.InvalidateObject(ObjectRef{Schema: schema, Name: name, Kind: kind})
	}
}

// InvalidateTable drops a single table's index entries and cached
// dependency edges, forcing the next get_table to run a targeted refresh.
func (c *Cache) InvalidateTable(schema, name string) {
	c.mu.Lock()
	c.ix.remove(schema, name)
	delete(c.ix.depsOut, refKey(ObjectRef{Schema: schema, Name: name, Kind: "TABLE"}))
	c.mu.Unlock()

	logCacheEvent("invalidated table", zap.String("schema", schema), zap.String("table", name))
}

// InvalidateObject handles DDL on a non-table catalog object (procedure,
// function, package, ...): it drops the object's cached dependency edges and
// the whole PL/SQL and user-defined-type inventories, so the next lookup of
// either re-fetches it from the live catalog.
func (c *Cache) InvalidateObject(ref ObjectRef) {
	key := refKey(ref)
	c.mu.Lock()
	c.plsql = make(map[string]*PLSQLObject)
	c.udts = make(map[string]*UserDefinedType)
	delete(c.ix.depsOut, key)
	delete(c.ix.depsIn, key)
	c.mu.Unlock()

	logCacheEvent("invalidated object", zap.String("object", key))
}

// InvalidateSchema drops the entire in-memory snapshot, forcing the next
// read to trigger a full rebuild. Used when a DDL statement's target can't
// be parsed with confidence, and after exec_pro_sql.
func (c *Cache) InvalidateSchema() {
	c.mu.Lock()
	c.ix = newIndexes()
	c.plsql = make(map[string]*PLSQLObject)
	c.udts = make(map[string]*UserDefinedType)
	c.fingerprint = Fingerprint{}
	c.mu.Unlock()

	logCacheEvent("invalidated entire schema cache")
}
