// Package jwt issues and verifies the short-lived access tokens that carry a
// session's identity, role, and permission mask. Verification is strict by
// default (algorithm pinning, bounded clock leeway, optional iat enforcement)
// so it can sit on the hot path of every request without a Redis round-trip.
//
// Ed25519 is the default signing method; HMAC-SHA256 is supported for
// single-process deployments. Rotation works through key IDs: tokens carry a
// kid header and [Config.VerifyKeys] holds the still-trusted old keys.
package jwt
