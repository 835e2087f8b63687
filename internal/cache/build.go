package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oracleschema/mcp-server/internal/apperr"
	"github.com/oracleschema/mcp-server/internal/connector"
)

// LoadOrBuild populates the cache at startup: it tries the on-disk snapshot
// first, falling back to a full catalog sweep when no snapshot exists or it
// fails to decode (a corrupt cache file is logged and discarded, never
// fatal — spec.md §7's CacheCorrupt handling).
func (c *Cache) LoadOrBuild(ctx context.Context) (BuildStats, error) {
	loaded, err := c.loadFromDisk()
	if err != nil {
		zap.L().Warn("cache file unreadable, rebuilding from catalog", zap.Error(err))
		loaded = false
	}
	if loaded {
		zap.L().Info("cache loaded from disk", zap.Int("tables", c.Size()))
		return BuildStats{Built: false, Tables: c.Size(), Fingerprint: c.Fingerprint()}, nil
	}
	return c.Rebuild(ctx)
}

// Rebuild forces a full recomputation (rebuild_schema_cache). Readers keep
// seeing the prior snapshot until the new one commits; a cheap fingerprint
// probe short-circuits the sweep when the catalog generation hasn't moved
// (the checksum-gated rebuild supplement from SPEC_FULL.md §10).
func (c *Cache) Rebuild(ctx context.Context) (BuildStats, error) {
	c.mu.Lock()
	if c.rebuilding {
		for c.rebuilding {
			c.rebuildCond.Wait()
		}
		c.mu.Unlock()
		return BuildStats{Built: false, Fingerprint: c.Fingerprint()}, nil
	}
	c.rebuilding = true
	prevFP := c.fingerprint
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.rebuilding = false
		c.rebuildCond.Broadcast()
		c.mu.Unlock()
	}()

	start := time.Now()

	candidateFP, err := c.computeFingerprint(ctx)
	if err != nil {
		return BuildStats{}, err
	}
	if candidateFP == prevFP && prevFP != (Fingerprint{}) {
		return BuildStats{Built: false, Fingerprint: prevFP, DurationMS: time.Since(start).Milliseconds()}, nil
	}

	newIx, plsql, udts, err := c.fullSweep(ctx)
	if err != nil {
		return BuildStats{}, err
	}

	c.mu.Lock()
	c.ix = newIx
	c.plsql = plsql
	c.udts = udts
	c.fingerprint = candidateFP
	tableCount := len(newIx.byQualified)
	c.mu.Unlock()

	if err := c.persistLocked(); err != nil {
		zap.L().Warn("cache persist after rebuild failed", zap.Error(err))
	}

	return BuildStats{
		Built:       true,
		DurationMS:  time.Since(start).Milliseconds(),
		Tables:      tableCount,
		Fingerprint: candidateFP,
	}, nil
}

// computeFingerprint derives the CatalogFingerprint from the Oracle version
// banner, target schema name, and the MAX(LAST_DDL_TIME) generation counter.
func (c *Cache) computeFingerprint(ctx context.Context) (Fingerprint, error) {
	rows, err := c.conn.FetchAll(ctx, connector.QueryGeneration,
		connector.Param{Name: "owner", Value: c.cfg.TargetSchema})
	if err != nil {
		return Fingerprint{}, err
	}
	var generation string
	if len(rows.Data) > 0 && len(rows.Data[0]) > 0 && rows.Data[0][0] != nil {
		generation = fmt.Sprintf("%v", rows.Data[0][0])
	}
	bannerRows, err := c.conn.FetchAll(ctx, connector.QueryVersionBanner)
	if err != nil {
		return Fingerprint{}, err
	}
	var banner string
	if len(bannerRows.Data) > 0 && len(bannerRows.Data[0]) > 0 && bannerRows.Data[0][0] != nil {
		banner = fmt.Sprintf("%v", bannerRows.Data[0][0])
	}
	h := sha256.Sum256([]byte(banner + "|" + c.cfg.TargetSchema + "|" + generation))
	return Fingerprint(h), nil
}

// fullSweep runs the catalog sweep in four stages: tables+columns, then
// constraints+indexes, then dependencies, then PL/SQL inventory. Every
// stage writes into a fresh index that is returned whole; nothing is
// published to readers or persisted between stages, so a sweep that fails
// part-way leaves no partial snapshot behind. Stages 1, 2 and 4 issue a
// fixed set of schema-wide queries; stage 3 issues one ALL_DEPENDENCIES
// query per table.
func (c *Cache) fullSweep(ctx context.Context) (*indexes, map[string]*PLSQLObject, map[string]*UserDefinedType, error) {
	ix := newIndexes()
	schema := c.cfg.TargetSchema
	owner := connector.Param{Name: "owner", Value: schema}
	noTable := connector.Param{Name: "table_name", Value: nil}

	// Stage 1: tables + columns (cheap).
	tableRows, err := c.conn.FetchAll(ctx, connector.QueryTables, owner, noTable)
	if err != nil {
		return nil, nil, nil, err
	}
	tables := make(map[string]*TableRecord)
	for _, row := range tableRows.Data {
		name, _ := row[0].(string)
		rec := &TableRecord{Schema: schema, Name: name, Kind: KindTable}
		if len(row) > 2 {
			if ts, ok := row[2].(time.Time); ok {
				rec.LastDDL = ts
			}
		}
		if len(row) > 3 {
			if s, ok := row[3].(string); ok && s != "" {
				rec.Comment = &s
			}
		}
		tables[qualify(schema, name)] = rec
	}
	if err := c.mergeViews(ctx, owner, noTable, tables, schema); err != nil {
		return nil, nil, nil, err
	}

	colRows, err := c.conn.FetchAll(ctx, connector.QueryColumns, owner, noTable)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, row := range colRows.Data {
		tableName, _ := row[0].(string)
		t, ok := tables[qualify(schema, tableName)]
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, columnFromRow(row))
	}
	if err := c.mergeColumnComments(ctx, owner, noTable, tables); err != nil {
		return nil, nil, nil, err
	}
	for _, t := range tables {
		ix.put(t)
	}
	zap.L().Debug("build stage complete: tables+columns", zap.Int("tables", len(tables)))

	// Stage 2: constraints + indexes.
	if err := c.mergeConstraints(ctx, owner, noTable, tables); err != nil {
		return nil, nil, nil, err
	}
	if err := c.mergeIndexes(ctx, owner, noTable, tables); err != nil {
		return nil, nil, nil, err
	}
	for _, t := range tables {
		ix.put(t) // re-commit with constraints/indexes attached
	}
	zap.L().Debug("build stage complete: constraints+indexes")

	// Stage 3: dependencies.
	if err := c.mergeDependencies(ctx, owner, ix); err != nil {
		return nil, nil, nil, err
	}
	zap.L().Debug("build stage complete: dependencies")

	// Stage 4: PL/SQL inventory + user-defined types.
	plsql, err := c.fetchPLSQLObjects(ctx, schema, "%")
	if err != nil {
		return nil, nil, nil, err
	}
	udts, err := c.fetchUserDefinedTypes(ctx, schema, "%")
	if err != nil {
		return nil, nil, nil, err
	}
	zap.L().Debug("build stage complete: plsql+udts", zap.Int("plsql", len(plsql)), zap.Int("udts", len(udts)))

	return ix, plsql, udts, nil
}

func (c *Cache) mergeViews(ctx context.Context, owner, noTable connector.Param, tables map[string]*TableRecord, schema string) error {
	viewRows, err := c.conn.FetchAll(ctx, connector.QueryViews, owner, noTable)
	if err != nil {
		return err
	}
	for _, row := range viewRows.Data {
		name, _ := row[0].(string)
		tables[qualify(schema, name)] = &TableRecord{Schema: schema, Name: name, Kind: KindView}
	}
	mvRows, err := c.conn.FetchAll(ctx, connector.QueryMaterializedViews, owner, noTable)
	if err != nil {
		return err
	}
	for _, row := range mvRows.Data {
		name, _ := row[0].(string)
		tables[qualify(schema, name)] = &TableRecord{Schema: schema, Name: name, Kind: KindMaterializedView}
	}
	return nil
}

func columnFromRow(row []any) ColumnRecord {
	col := ColumnRecord{}
	if len(row) > 1 {
		col.Name, _ = row[1].(string)
	}
	if len(row) > 2 {
		if pos, ok := toInt(row[2]); ok {
			col.Position = pos
		}
	}
	if len(row) > 3 {
		dt, _ := row[3].(string)
		col.DataType = dt
	}
	if len(row) > 7 {
		if n, ok := row[7].(string); ok {
			col.Nullable = n == "Y"
		}
	}
	if len(row) > 8 {
		if d, ok := row[8].(string); ok && d != "" {
			col.DefaultExpr = &d
		}
	}
	return col
}

// mergeColumnComments merges all_col_comments rows into each table's already
// populated Columns, keyed by (table_name, column_name). Oracle reports an
// empty string rather than NULL for a column with no comment, so both are
// treated as absent.
func (c *Cache) mergeColumnComments(ctx context.Context, owner, noTable connector.Param, tables map[string]*TableRecord) error {
	rows, err := c.conn.FetchAll(ctx, connector.QueryColumnComments, owner, noTable)
	if err != nil {
		return err
	}
	byTableColumn := make(map[string]string, len(rows.Data))
	for _, row := range rows.Data {
		tableName, _ := row[0].(string)
		colName, _ := row[1].(string)
		comment, _ := row[2].(string)
		if comment == "" {
			continue
		}
		byTableColumn[tableName+"\x00"+colName] = comment
	}
	for _, t := range tables {
		for i := range t.Columns {
			if cm, ok := byTableColumn[t.Name+"\x00"+t.Columns[i].Name]; ok {
				v := cm
				t.Columns[i].Comment = &v
			}
		}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func (c *Cache) mergeConstraints(ctx context.Context, owner, noTable connector.Param, tables map[string]*TableRecord) error {
	consRows, err := c.conn.FetchAll(ctx, connector.QueryConstraints, owner, noTable)
	if err != nil {
		return err
	}
	consColRows, err := c.conn.FetchAll(ctx, connector.QueryConsColumns, owner, noTable)
	if err != nil {
		return err
	}

	colsByConstraint := make(map[string][]string)
	for _, row := range consColRows.Data {
		consName, _ := row[0].(string)
		colName, _ := row[2].(string)
		colsByConstraint[consName] = append(colsByConstraint[consName], colName)
	}

	// targetColsCache holds referenced-constraint column lists resolved via
	// a fallback query, keyed by "owner.constraint_name", so a constraint
	// referenced by several local FKs (or seen again on a later row) only
	// costs one extra round trip.
	targetColsCache := make(map[string][]string)

	for _, row := range consRows.Data {
		consName, _ := row[0].(string)
		consType, _ := row[1].(string)
		tableName, _ := row[2].(string)
		t, ok := tables[qualify(c.cfg.TargetSchema, tableName)]
		if !ok {
			continue
		}
		cols := colsByConstraint[consName]

		switch consType {
		case "P":
			t.PrimaryKey = cols
		case "U":
			t.UniqueKeys = append(t.UniqueKeys, cols)
		case "R":
			rTable, _ := row[6].(string)
			rOwner, _ := row[5].(string)
			deleteRule, _ := row[7].(string)
			status, _ := row[3].(string)
			deferrable, _ := row[4].(string)
			var rConsName string
			if len(row) > 8 {
				rConsName, _ = row[8].(string)
			}

			targetCols := colsByConstraint[rConsName]
			if len(targetCols) == 0 && rConsName != "" {
				cacheKey := rOwner + "." + rConsName
				cached, ok := targetColsCache[cacheKey]
				if !ok {
					resolved, err := c.resolveConstraintColumns(ctx, rOwner, rConsName)
					if err != nil {
						return err
					}
					targetColsCache[cacheKey] = resolved
					cached = resolved
				}
				targetCols = cached
			}

			t.ForeignKeys = append(t.ForeignKeys, ForeignKeyRecord{
				Name:          consName,
				LocalColumns:  cols,
				TargetSchema:  rOwner,
				TargetTable:   rTable,
				TargetColumns: targetCols,
				OnDelete:      fkActionFromRule(deleteRule),
				Deferrable:    deferrable == "DEFERRABLE",
				Status:        constraintStatus(status),
				// External means the target schema differs from the one
				// this cache tracks, not "absent from the current batch";
				// a targeted single-table refresh only ever sees one row.
				External: !strings.EqualFold(rOwner, c.cfg.TargetSchema),
			})
		case "C":
			status, _ := row[3].(string)
			t.CheckConstraints = append(t.CheckConstraints, CheckRecord{
				Name: consName, Status: constraintStatus(status),
			})
		}
	}
	return nil
}

// resolveConstraintColumns looks up one constraint's columns directly,
// for a referenced constraint that the batch's own QueryConsColumns call
// didn't cover (a different table's constraint under a table_name filter,
// or one owned by another schema entirely).
func (c *Cache) resolveConstraintColumns(ctx context.Context, owner, constraintName string) ([]string, error) {
	rows, err := c.conn.FetchAll(ctx, connector.QueryConstraintColumns,
		connector.Param{Name: "owner", Value: owner},
		connector.Param{Name: "constraint_name", Value: constraintName})
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(rows.Data))
	for _, row := range rows.Data {
		if name, ok := row[0].(string); ok {
			cols = append(cols, name)
		}
	}
	return cols, nil
}

func fkActionFromRule(rule string) FKAction {
	switch rule {
	case "CASCADE":
		return FKCascade
	case "SET NULL":
		return FKSetNull
	default:
		return FKNoAction
	}
}

func constraintStatus(s string) ConstraintStatus {
	if s == "DISABLED" {
		return StatusDisabled
	}
	return StatusEnabled
}

func (c *Cache) mergeIndexes(ctx context.Context, owner, noTable connector.Param, tables map[string]*TableRecord) error {
	idxRows, err := c.conn.FetchAll(ctx, connector.QueryIndexes, owner, noTable)
	if err != nil {
		return err
	}
	idxColRows, err := c.conn.FetchAll(ctx, connector.QueryIndColumns, owner, noTable)
	if err != nil {
		return err
	}

	colsByIndex := make(map[string][]IndexColumn)
	for _, row := range idxColRows.Data {
		idxName, _ := row[0].(string)
		colName, _ := row[2].(string)
		desc, _ := row[3].(string)
		colsByIndex[idxName] = append(colsByIndex[idxName], IndexColumn{Name: colName, Desc: desc == "DESC"})
	}

	for _, row := range idxRows.Data {
		idxName, _ := row[0].(string)
		tableName, _ := row[1].(string)
		uniqueness, _ := row[2].(string)
		idxType, _ := row[3].(string)
		t, ok := tables[qualify(c.cfg.TargetSchema, tableName)]
		if !ok {
			continue
		}
		t.Indexes = append(t.Indexes, IndexRecord{
			Name: idxName, Unique: uniqueness == "UNIQUE",
			Columns: colsByIndex[idxName], IndexType: idxType,
		})
	}
	return nil
}

func (c *Cache) mergeDependencies(ctx context.Context, owner connector.Param, ix *indexes) error {
	for key, t := range ix.byQualified {
		ref := ObjectRef{Schema: t.Schema, Name: t.Name, Kind: string(t.Kind)}
		rows, err := c.conn.FetchAll(ctx, connector.QueryDependencies, owner,
			connector.Param{Name: "name", Value: t.Name})
		if err != nil {
			return apperr.Wrap(apperr.QueryError, "dependencies for "+key, err)
		}
		var out []ObjectRef
		for _, row := range rows.Data {
			refOwner, _ := row[2].(string)
			refName, _ := row[3].(string)
			refType, _ := row[4].(string)
			out = append(out, ObjectRef{Schema: refOwner, Name: refName, Kind: refType})
		}
		ix.setDeps(ref, out)
	}
	return nil
}
