// Package testdb provides migrated databases for tests.
//
// SQLite databases are always available: each one lives in the test's
// temporary directory. PostgreSQL is used only when TASKSYNC_TEST_DATABASE_URL
// (or DATABASE_URL) is set; tests that ask for it are skipped otherwise.
//
// Tests sharing one PostgreSQL database isolate themselves with WithTx, which
// rolls back everything the test wrote:
//
//	testdb.ForEachDriver(t, func(t *testing.T, db *sql.DB) {
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := sqlstore.NewTaskStore(tx, nil)
//	        // ...
//	    })
//	})
package testdb
