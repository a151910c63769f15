// Package sqlstore implements the store interfaces on top of database/sql.
//
// The same queries run against SQLite (ncruces/go-sqlite3) and PostgreSQL
// (pgx). To stay portable, every query uses $N placeholders with each
// placeholder bound exactly once and in ascending order, and timestamps are
// persisted as fixed-width UTC text whose lexical order matches time order.
package sqlstore
