// Package rbac implements the static role-permission matrix used across
// FoodONtracks: a fixed set of roles, a fixed set of gated resources, and a
// bitmask-backed lookup table answering "may this role perform this action on
// this resource".
//
// # Design
//
// Permission names ("orders.view", "menu.edit", ...) are assigned bit
// positions in a 64-bit mask by a [Registry]. A [Matrix] maps each role to
// its mask. The matrix is built once at startup, frozen, and then queried
// lock-free on every request; the same table drives both middleware
// enforcement and UI capability introspection.
//
// # Architecture boundaries
//
// This package owns the permission vocabulary and the role table. It performs
// no I/O and makes no authentication decisions — callers resolve a role (from
// a validated token or session) and ask the matrix.
//
// # What this package must NOT do
//
//   - Parse tokens or sessions.
//   - Consult any store at lookup time.
//   - Mutate the matrix after Freeze.
package rbac
