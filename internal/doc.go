// Package internal contains helper utilities that are intentionally private
// to trackd, including secure random generation and refresh token encoding.
//
// # Sub-packages
//
//   - rate — core Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public trackd API.
//   - Be imported by any package outside the trackd module.
package internal
