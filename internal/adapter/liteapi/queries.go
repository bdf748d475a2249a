package liteapi

// Metadata queries issued against the remote execution API. Identifiers are
// sanitized before interpolation; the engine does not support placeholders
// inside PRAGMA statements.
const (
	queryListTables = `SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`

	queryTableInfo   = `PRAGMA table_info(%s)`
	queryForeignKeys = `PRAGMA foreign_key_list(%s)`
	queryIndexList   = `PRAGMA index_list(%s)`
	queryIndexInfo   = `PRAGMA index_info(%s)`

	queryRowCount = `SELECT COUNT(*) AS count FROM %s`
)
