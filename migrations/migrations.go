// Package migrations embeds the schema files applied by the migrate command.
package migrations

import "embed"

// MySQL holds the *.sql files for the roster database, applied in name order.
//
//go:embed *.sql
var MySQL embed.FS

// ClickHouse holds the delivery report schema. Statements are split on ';'
// because the ClickHouse driver runs one statement per Exec.
//
//go:embed clickhouse/*.sql
var ClickHouse embed.FS
