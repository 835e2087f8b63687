package cache

import (
	"context"
	"strings"

	"github.com/oracleschema/mcp-server/internal/apperr"
	"github.com/oracleschema/mcp-server/internal/connector"
)

const maxSourceBytes = 1 << 20 // 1 MiB, per spec.md §4.3's get_object_source cap

// GetPLSQLObjects implements get_pl_sql_objects(name_pattern, kinds).
func (c *Cache) GetPLSQLObjects(ctx context.Context, namePattern string, kinds []PLSQLKind) ([]*PLSQLObject, error) {
	pattern := namePattern
	if pattern == "" {
		pattern = "%"
	}

	c.mu.RLock()
	cached := make([]*PLSQLObject, 0, len(c.plsql))
	for _, o := range c.plsql {
		cached = append(cached, o)
	}
	c.mu.RUnlock()

	if len(cached) == 0 {
		objs, err := c.fetchPLSQLObjects(ctx, c.cfg.TargetSchema, pattern)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		for k, v := range objs {
			c.plsql[k] = v
		}
		c.mu.Unlock()
		cached = nil
		for _, o := range objs {
			cached = append(cached, o)
		}
	}

	wantKinds := make(map[PLSQLKind]bool, len(kinds))
	for _, k := range kinds {
		wantKinds[k] = true
	}

	var out []*PLSQLObject
	upperPattern := strings.ToUpper(pattern)
	for _, o := range cached {
		if len(kinds) > 0 && !wantKinds[o.Kind] {
			continue
		}
		if globToTier(upperPattern, strings.ToUpper(o.Name)) == tierNone {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (c *Cache) fetchPLSQLObjects(ctx context.Context, schema, pattern string) (map[string]*PLSQLObject, error) {
	rows, err := c.conn.FetchAll(ctx, connector.QueryObjects,
		connector.Param{Name: "owner", Value: schema},
		connector.Param{Name: "name_pattern", Value: oraclePattern(pattern)})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*PLSQLObject, len(rows.Data))
	for _, row := range rows.Data {
		name, _ := row[0].(string)
		kind, _ := row[1].(string)
		status, _ := row[2].(string)
		obj := &PLSQLObject{
			Schema: schema, Name: name,
			Kind:           PLSQLKind(strings.ReplaceAll(kind, " ", "_")),
			Status:         status,
			SourceAvailable: kindHasSource(kind),
		}
		out[refKey(ObjectRef{Schema: schema, Name: name, Kind: kind})] = obj
	}
	return out, nil
}

func kindHasSource(oracleKind string) bool {
	switch oracleKind {
	case "PROCEDURE", "FUNCTION", "PACKAGE", "PACKAGE BODY", "TRIGGER", "TYPE", "TYPE BODY":
		return true
	default:
		return false
	}
}

// oraclePattern translates our %FRAG% glob into an Oracle LIKE pattern
// (they already share the same wildcard character), defaulting to
// match-all when the pattern is empty.
func oraclePattern(p string) string {
	if p == "" {
		return "%"
	}
	if !strings.Contains(p, "%") {
		return "%" + p + "%"
	}
	return p
}

// GetObjectSource implements get_object_source(schema, name, kind), capped
// at 1 MiB with an explicit truncated flag — the only tool allowed to
// return an effectively unbounded blob (spec.md §4.3).
func (c *Cache) GetObjectSource(ctx context.Context, name string, kind string) (source string, truncated bool, err error) {
	schema, unqual := splitQualified(name, c.cfg.TargetSchema)
	rows, err := c.conn.FetchAll(ctx, connector.QuerySource,
		connector.Param{Name: "owner", Value: schema},
		connector.Param{Name: "name", Value: unqual},
		connector.Param{Name: "type", Value: kind})
	if err != nil {
		return "", false, err
	}
	if len(rows.Data) == 0 {
		return "", false, apperr.New(apperr.NotFound, "object source not found: "+name)
	}

	var b strings.Builder
	for _, row := range rows.Data {
		line, _ := row[1].(string)
		if b.Len()+len(line) > maxSourceBytes {
			remaining := maxSourceBytes - b.Len()
			if remaining > 0 {
				b.WriteString(line[:min(remaining, len(line))])
			}
			return b.String(), true, nil
		}
		b.WriteString(line)
	}
	return b.String(), false, nil
}

// GetDependents implements get_dependents(schema, name, kind): queries
// ALL_DEPENDENCIES on miss, caches the result.
func (c *Cache) GetDependents(ctx context.Context, schema, name, kind string) ([]ObjectRef, error) {
	ref := ObjectRef{Schema: schema, Name: name, Kind: kind}
	key := refKey(ref)

	c.mu.RLock()
	if in, ok := c.ix.depsIn[key]; ok {
		defer c.mu.RUnlock()
		return append([]ObjectRef(nil), in...), nil
	}
	c.mu.RUnlock()

	rows, err := c.conn.FetchAll(ctx, connector.QueryDependents,
		connector.Param{Name: "owner", Value: schema},
		connector.Param{Name: "name", Value: name})
	if err != nil {
		return nil, err
	}
	var out []ObjectRef
	for _, row := range rows.Data {
		o, _ := row[0].(string)
		n, _ := row[1].(string)
		t, _ := row[2].(string)
		out = append(out, ObjectRef{Schema: o, Name: n, Kind: t})
	}

	c.mu.Lock()
	c.ix.depsIn[key] = out
	c.mu.Unlock()

	return out, nil
}

// GetUserDefinedTypes implements get_user_defined_types(pattern).
func (c *Cache) GetUserDefinedTypes(ctx context.Context, pattern string) ([]*UserDefinedType, error) {
	if pattern == "" {
		pattern = "%"
	}

	c.mu.RLock()
	cached := len(c.udts) > 0
	var out []*UserDefinedType
	if cached {
		upperPattern := strings.ToUpper(pattern)
		for _, u := range c.udts {
			if globToTier(upperPattern, strings.ToUpper(u.Name)) != tierNone {
				out = append(out, u)
			}
		}
	}
	c.mu.RUnlock()
	if cached {
		return out, nil
	}

	udts, err := c.fetchUserDefinedTypes(ctx, c.cfg.TargetSchema, pattern)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	for k, v := range udts {
		c.udts[k] = v
	}
	c.mu.Unlock()

	for _, u := range udts {
		out = append(out, u)
	}
	return out, nil
}

func (c *Cache) fetchUserDefinedTypes(ctx context.Context, schema, pattern string) (map[string]*UserDefinedType, error) {
	rows, err := c.conn.FetchAll(ctx, connector.QueryTypes,
		connector.Param{Name: "owner", Value: schema},
		connector.Param{Name: "name_pattern", Value: oraclePattern(pattern)})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*UserDefinedType, len(rows.Data))
	for _, row := range rows.Data {
		name, _ := row[0].(string)
		typecode, _ := row[1].(string)
		out[qualify(schema, name)] = &UserDefinedType{Schema: schema, Name: name, TypeCode: typecode}
	}

	attrRows, err := c.conn.FetchAll(ctx, connector.QueryTypeAttrs,
		connector.Param{Name: "owner", Value: schema},
		connector.Param{Name: "type_name", Value: nil})
	if err != nil {
		return nil, err
	}
	for _, row := range attrRows.Data {
		typeName, _ := row[0].(string)
		attrName, _ := row[1].(string)
		attrType, _ := row[2].(string)
		if u, ok := out[qualify(schema, typeName)]; ok {
			u.Attributes = append(u.Attributes, UDTAttribute{Name: attrName, DataType: attrType})
		}
	}
	return out, nil
}
