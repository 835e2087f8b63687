package connector

// Catalog SQL templates, one per ALL_* data-dictionary view named in
// spec.md §4.1. Every filter binds through driver placeholders (:owner,
// :table_name, ...); none use string interpolation, per the Design Notes'
// "no ad-hoc SQL string formatting" directive.
const (
	QueryTables = `
SELECT table_name, 'TABLE' AS kind, last_ddl_time, comments
  FROM all_tables t
  LEFT JOIN all_tab_comments c
    ON c.owner = t.owner AND c.table_name = t.table_name
 WHERE t.owner = :owner
   AND (:table_name IS NULL OR t.table_name = :table_name)`

	QueryViews = `
SELECT view_name AS table_name, 'VIEW' AS kind
  FROM all_views
 WHERE owner = :owner
   AND (:table_name IS NULL OR view_name = :table_name)`

	QueryMaterializedViews = `
SELECT mview_name AS table_name, 'MATERIALIZED_VIEW' AS kind
  FROM all_mviews
 WHERE owner = :owner
   AND (:table_name IS NULL OR mview_name = :table_name)`

	QueryColumns = `
SELECT table_name, column_name, column_id, data_type, data_length, data_precision,
       data_scale, nullable, data_default, char_used
  FROM all_tab_columns
 WHERE owner = :owner
   AND (:table_name IS NULL OR table_name = :table_name)
 ORDER BY table_name, column_id`

	QueryColumnComments = `
SELECT table_name, column_name, comments
  FROM all_col_comments
 WHERE owner = :owner
   AND (:table_name IS NULL OR table_name = :table_name)`

	QueryConstraints = `
SELECT c.constraint_name, c.constraint_type, c.table_name, c.status, c.deferrable,
       c.r_owner, rc.table_name AS r_table_name, c.delete_rule, c.r_constraint_name
  FROM all_constraints c
  LEFT JOIN all_constraints rc
    ON rc.owner = c.r_owner AND rc.constraint_name = c.r_constraint_name
 WHERE c.owner = :owner
   AND (:table_name IS NULL OR c.table_name = :table_name)
   AND c.constraint_type IN ('P', 'U', 'R', 'C')`

	QueryConsColumns = `
SELECT constraint_name, table_name, column_name, position
  FROM all_cons_columns
 WHERE owner = :owner
   AND (:table_name IS NULL OR table_name = :table_name)
 ORDER BY constraint_name, position`

	// QueryConstraintColumns resolves one referenced constraint's column list
	// by name, for the case where a foreign key's target lies on a table
	// QueryConsColumns' table_name filter excluded (a targeted single-table
	// refresh, or a constraint owned by a schema other than :owner).
	QueryConstraintColumns = `
SELECT column_name
  FROM all_cons_columns
 WHERE owner = :owner
   AND constraint_name = :constraint_name
 ORDER BY position`

	QueryIndexes = `
SELECT index_name, table_name, uniqueness, index_type
  FROM all_indexes
 WHERE table_owner = :owner
   AND (:table_name IS NULL OR table_name = :table_name)`

	QueryIndColumns = `
SELECT index_name, table_name, column_name, descend, column_position
  FROM all_ind_columns
 WHERE index_owner = :owner
   AND (:table_name IS NULL OR table_name = :table_name)
 ORDER BY index_name, column_position`

	QueryObjects = `
SELECT object_name, object_type, status, last_ddl_time
  FROM all_objects
 WHERE owner = :owner
   AND object_type IN ('PROCEDURE','FUNCTION','PACKAGE','PACKAGE BODY',
                        'TRIGGER','TYPE','TYPE BODY','SEQUENCE','SYNONYM')
   AND (:name_pattern IS NULL OR object_name LIKE :name_pattern)`

	QuerySource = `
SELECT line, text
  FROM all_source
 WHERE owner = :owner
   AND name = :name
   AND type = :type
 ORDER BY line`

	QueryDependencies = `
SELECT name, type, referenced_owner, referenced_name, referenced_type
  FROM all_dependencies
 WHERE owner = :owner
   AND name = :name`

	QueryDependents = `
SELECT owner, name, type
  FROM all_dependencies
 WHERE referenced_owner = :owner
   AND referenced_name = :name`

	QueryTypes = `
SELECT type_name, typecode
  FROM all_types
 WHERE owner = :owner
   AND (:name_pattern IS NULL OR type_name LIKE :name_pattern)`

	QueryTypeAttrs = `
SELECT type_name, attr_name, attr_type_name, attr_no
  FROM all_type_attrs
 WHERE owner = :owner
   AND (:type_name IS NULL OR type_name = :type_name)
 ORDER BY type_name, attr_no`

	// QueryGeneration derives the monotonic catalog-generation counter from
	// the aggregate of LAST_DDL_TIME across every object owned by the
	// target schema, per spec.md §3's CatalogFingerprint definition.
	QueryGeneration = `
SELECT MAX(last_ddl_time)
  FROM all_objects
 WHERE owner = :owner`

	QueryVersionBanner = `SELECT banner FROM v$version WHERE rownum = 1`
)
