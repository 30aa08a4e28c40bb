// Package history persists one row per runner invocation and one row per
// executed stage so operators can see what ran, when, and why it stopped.
//
// SQLite (modernc.org/sqlite) is the default backend and lives next to the
// log file. MySQL is available for shared recipe hosts. Both use the same
// portable schema.
package history
