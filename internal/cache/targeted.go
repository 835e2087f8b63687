package cache

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/oracleschema/mcp-server/internal/connector"
)

// targetedRefresh implements the "targeted lookup on miss" algorithm of
// spec.md §4.2: on a get_table miss, issue narrow, indexed catalog queries
// for just this table (tables, columns, constraints, indexes), merge the
// result into the in-memory index under a per-table lock, and schedule an
// async disk persist. It never triggers a full build.
func (c *Cache) targetedRefresh(ctx context.Context, schema, name string) (*TableRecord, error) {
	lockKey := qualify(schema, name)
	muAny, _ := c.fineGrained.LoadOrStore(lockKey, &lockHolder{})
	lh := muAny.(*lockHolder)
	lh.mu.Lock()
	defer lh.mu.Unlock()

	owner := connector.Param{Name: "owner", Value: schema}
	named := connector.Param{Name: "table_name", Value: strings.ToUpper(name)}

	tableRows, err := c.conn.FetchAll(ctx, connector.QueryTables, owner, named)
	if err != nil {
		return nil, err
	}

	var t *TableRecord
	if len(tableRows.Data) > 0 {
		row := tableRows.Data[0]
		rname, _ := row[0].(string)
		t = &TableRecord{Schema: schema, Name: rname, Kind: KindTable}
	} else {
		viewRows, err := c.conn.FetchAll(ctx, connector.QueryViews, owner, named)
		if err != nil {
			return nil, err
		}
		if len(viewRows.Data) > 0 {
			rname, _ := viewRows.Data[0][0].(string)
			t = &TableRecord{Schema: schema, Name: rname, Kind: KindView}
		}
	}
	if t == nil {
		mvRows, err := c.conn.FetchAll(ctx, connector.QueryMaterializedViews, owner, named)
		if err != nil {
			return nil, err
		}
		if len(mvRows.Data) > 0 {
			rname, _ := mvRows.Data[0][0].(string)
			t = &TableRecord{Schema: schema, Name: rname, Kind: KindMaterializedView}
		}
	}
	if t == nil {
		return nil, nil // NotFound
	}

	colRows, err := c.conn.FetchAll(ctx, connector.QueryColumns, owner, named)
	if err != nil {
		return nil, err
	}
	for _, row := range colRows.Data {
		t.Columns = append(t.Columns, columnFromRow(row))
	}

	tables := map[string]*TableRecord{qualify(schema, t.Name): t}
	if err := c.mergeColumnComments(ctx, owner, named, tables); err != nil {
		return nil, err
	}
	if err := c.mergeConstraints(ctx, owner, named, tables); err != nil {
		return nil, err
	}
	if err := c.mergeIndexes(ctx, owner, named, tables); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.ix.put(t)
	c.mu.Unlock()

	logCacheEvent("targeted refresh merged table", zap.String("table", lockKey))

	go func() {
		if err := c.persistAsync(); err != nil {
			zap.L().Warn("async persist after targeted refresh failed", zap.Error(err))
		}
	}()

	return t, nil
}

// lockHolder wraps a sync.Mutex so it can live inside a sync.Map value,
// keyed on the normalized table name (spec.md §5's fine-grained locking
// allowance for targeted single-table merges).
type lockHolder struct {
	mu sync.Mutex
}
