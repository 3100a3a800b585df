// Package db embeds the SQL schema applied on startup.
package db

import _ "embed"

// Schema holds the DDL for the catalog, ledger, cart, and order tables.
// Every statement is IF NOT EXISTS so it can be re-applied on each start.
//
//go:embed migrations/001_schema.sql
var Schema string
