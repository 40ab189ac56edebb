package migrations

import "embed"

// PostgresFS embeds the raffles/entries/users schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the sale_events analytics schema migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
