// Package prefs stores per-user UI preferences in Redis as JSON values.
//
// Preferences are a small validated document (theme, language, table
// density, sidebar state, landing page). Reads fall back to defaults when
// no document exists; writes are last-write-wins with no coordination
// between writers.
//
// # What this package must NOT do
//
//   - Import the root trackd package (the engine wraps this store).
//   - Gate access: callers decide whose preferences they may touch.
package prefs
