// Package journal records opportunity lifecycle transitions in PostgreSQL.
//
// Transitions (added, updated, reappeared, vanished, evicted) arrive from the
// engine loop, are buffered without blocking it, and are batch-inserted into
// opportunity_events with pgx.Batch. A batch is flushed when it reaches
// BatchSize or every FlushInterval, whichever comes first.
package journal
