package engine

import "context"

// GetTableConstraints implements get_table_constraints(name).
func (e *Engine) GetTableConstraints(ctx context.Context, name string) (*ConstraintsJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	t, err := e.Cache.GetConstraints(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFoundErr("table " + name)
	}
	out := constraintsToJSON(t)
	return &out, nil
}

// GetTableIndexes implements get_table_indexes(name).
func (e *Engine) GetTableIndexes(ctx context.Context, name string) ([]IndexJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	idxs, err := e.Cache.GetIndexes(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]IndexJSON, 0, len(idxs))
	for _, idx := range idxs {
		ij := IndexJSON{Name: idx.Name, Unique: idx.Unique, IndexType: idx.IndexType}
		for _, c := range idx.Columns {
			ij.Columns = append(ij.Columns, IndexColumnJSON{Name: c.Name, Desc: c.Desc})
		}
		out = append(out, ij)
	}
	return out, nil
}

// RelatedTablesJSON is the result of get_related_tables.
type RelatedTablesJSON struct {
	Incoming []ObjectRefJSON `json:"incoming"`
	Outgoing []ObjectRefJSON `json:"outgoing"`
}

// GetRelatedTables implements get_related_tables(name).
func (e *Engine) GetRelatedTables(ctx context.Context, name string) (*RelatedTablesJSON, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	rel, err := e.Cache.GetRelatedTables(ctx, name)
	if err != nil {
		return nil, err
	}
	out := &RelatedTablesJSON{}
	for _, r := range rel.Incoming {
		out.Incoming = append(out.Incoming, ObjectRefJSON{Schema: r.Schema, Name: r.Name, Kind: "TABLE", Via: r.Via})
	}
	for _, r := range rel.Outgoing {
		out.Outgoing = append(out.Outgoing, ObjectRefJSON{Schema: r.Schema, Name: r.Name, Kind: "TABLE", Via: r.Via})
	}
	if out.Incoming == nil {
		out.Incoming = []ObjectRefJSON{}
	}
	if out.Outgoing == nil {
		out.Outgoing = []ObjectRefJSON{}
	}
	return out, nil
}
