// Package database provides PostgreSQL connection pool management.
//
// The only consumer is the lifecycle journal, which is optional; nothing
// connects unless journal.enabled is set.
package database
