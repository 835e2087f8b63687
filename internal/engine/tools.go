package engine

// ToolNames lists every MCP tool name the engine exposes, in the order
// spec.md §6 lists them. The mcpserver package does not iterate this slice:
// registerAll registers each tool with its own explicit AddTool call naming
// its handler — no reflection-driven, name-mangled auto-registration.
var ToolNames = []string{
	"get_table_schema",
	"get_tables_schema",
	"search_tables_schema",
	"search_columns",
	"get_database_vendor_info",
	"get_pl_sql_objects",
	"get_object_source",
	"get_table_constraints",
	"get_table_indexes",
	"get_dependent_objects",
	"get_user_defined_types",
	"get_related_tables",
	"rebuild_schema_cache",
	"read_query",
	"exec_ddl_sql",
	"exec_dml_sql",
	"exec_pro_sql",
}

// WriteTools names the subset that change the database (DDL, DML and PL/SQL
// execution), for callers that want to log or audit them differently.
var WriteTools = map[string]bool{
	"exec_ddl_sql": true,
	"exec_dml_sql": true,
	"exec_pro_sql": true,
}
