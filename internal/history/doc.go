// Package history persists batch outcomes to SQLite.
//
// Only metadata is stored: per-item status, failure kind, title, character
// count, and timing. Transcript text never reaches the database; callers
// receive it in the API response and the daemon forgets it afterwards.
package history
