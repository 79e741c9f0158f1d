// Package testdb provides database helpers for store tests.
//
// PostgreSQL tests open the database named by DATABASE_URL (or
// HITSTER_TEST_DB_URL), skip when neither is set, migrate the schema once per
// process, and usually run inside WithTx so every change is rolled back.
// SQLite tests get a private, migrated database file under t.TempDir(), so
// they always run.
package testdb
