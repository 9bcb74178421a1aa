package migrations

import "embed"

// One goose migration set per dialect, applied by Dialect.Migrate.

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed mysql/*.sql
var MySQLFS embed.FS

//go:embed oracle/*.sql
var OracleFS embed.FS
