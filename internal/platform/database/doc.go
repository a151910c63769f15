// Package database opens the SQL databases backing the local store and the
// reference authority, and applies their schema migrations.
//
// Two drivers are supported. "sqlite" uses the embedded, cgo-free
// ncruces/go-sqlite3 driver and is the default for the offline client.
// "postgres" uses pgx through database/sql. Both share one schema shape so the
// stores in sqlstore run unchanged against either.
package database
