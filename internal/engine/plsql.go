package engine

import (
	"context"
	"strings"

	"github.com/oracleschema/mcp-server/internal/cache"
)

// GetPLSQLObjects implements get_pl_sql_objects(name_pattern, kinds).
func (e *Engine) GetPLSQLObjects(ctx context.Context, namePattern string, kinds []string) ([]PLSQLObjectJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	wantKinds := make([]cache.PLSQLKind, 0, len(kinds))
	for _, k := range kinds {
		wantKinds = append(wantKinds, cache.PLSQLKind(strings.ToUpper(k)))
	}

	objs, err := e.Cache.GetPLSQLObjects(ctx, namePattern, wantKinds)
	if err != nil {
		return nil, err
	}
	out := make([]PLSQLObjectJSON, 0, len(objs))
	for _, o := range objs {
		out = append(out, plsqlToJSON(o))
	}
	return out, nil
}

// ObjectSourceJSON is the result of get_object_source.
type ObjectSourceJSON struct {
	Source    string `json:"source"`
	Truncated bool   `json:"truncated"`
}

// GetObjectSource implements get_object_source(name, kind).
func (e *Engine) GetObjectSource(ctx context.Context, name, kind string) (*ObjectSourceJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	src, truncated, err := e.Cache.GetObjectSource(ctx, name, strings.ToUpper(kind))
	if err != nil {
		return nil, err
	}
	return &ObjectSourceJSON{Source: src, Truncated: truncated}, nil
}

// GetDependentObjects implements get_dependent_objects(name, kind).
func (e *Engine) GetDependentObjects(ctx context.Context, name, kind string) ([]ObjectRefJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	schema, unqual := splitQualifiedName(name, e.Cache.DefaultSchema())
	refs, err := e.Cache.GetDependents(ctx, schema, unqual, strings.ToUpper(kind))
	if err != nil {
		return nil, err
	}
	out := make([]ObjectRefJSON, 0, len(refs))
	for _, r := range refs {
		out = append(out, objectRefToJSON(r))
	}
	return out, nil
}

// GetUserDefinedTypes implements get_user_defined_types(pattern).
func (e *Engine) GetUserDefinedTypes(ctx context.Context, pattern string) ([]UDTJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	udts, err := e.Cache.GetUserDefinedTypes(ctx, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]UDTJSON, 0, len(udts))
	for _, u := range udts {
		out = append(out, udtToJSON(u))
	}
	return out, nil
}

func splitQualifiedName(name, defaultSchema string) (schema, unqual string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return strings.ToUpper(name[:i]), name[i+1:]
	}
	return defaultSchema, name
}
