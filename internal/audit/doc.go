// Package audit provides a SQLite-backed journal of bot command invocations.
//
// Every slash command handled by the bot can be appended as an Entry: who
// ran it, in which guild, against which case number, and how it ended.
// The journal is append-only; entries are never updated or deleted.
//
// # Ordering
//
// Entries are ordered by seq, an AUTOINCREMENT rowid assigned on insert.
// The wall-clock "at" column is recorded for humans and never used to order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Entry IDs are UUIDv7 by default, see UUIDv7Generator.
package audit
