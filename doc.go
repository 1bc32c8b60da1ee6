// Package trackd provides the security core of the FoodONtracks delivery
// backend: JWT access tokens, rotating opaque refresh tokens, Redis-backed
// session controls, a static role/resource permission matrix, per-user UI
// preferences, and an in-memory audit log.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// trackd is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (AuthResult, MetricsSnapshot, SecurityReport, etc.). Permission
// types live in the rbac sub-package, preference documents in prefs, and the
// HTTP route gate in middleware. All other coordination, session encoding, rate
// limiting, and refresh token handling lives under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its
//     public API.
//   - Own order or traceability storage; the engine records the audit trail
//     and metrics for those flows, nothing more.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Performance contract
//
// Validate is the hot path. It must not allocate beyond the returned
// AuthResult and must complete without Redis round-trips in ModeJWTOnly.
// Refresh, Login, and account operations are allowed one Redis round-trip
// per call.
package trackd
