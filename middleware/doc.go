// Package middleware exposes HTTP middleware adapters for JWT-only, hybrid, and strict
// authorization enforcement modes built on top of trackd.Engine validation.
//
// # Guards
//
//   - [Guard] — auto-selects enforcement mode from Engine config.
//   - [RequireJWTOnly] — stateless JWT verification, no Redis call.
//   - [RequireStrict] — JWT + session store verification.
//   - [RequirePermission] / [RequireAny] / [RequireAll] — matrix checks after a Guard.
//   - [RouteGuard] — static [RouteTable] gating whole URL subtrees, with
//     redirect-to-login handling for page routes and JSON errors for API routes.
//
// Each guard reads the Authorization header (falling back to the access
// cookie), calls Engine.Validate, and injects the validated result into the
// request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond what Engine.Validate and the matrix return.
package middleware
