// Package middleware exposes HTTP middleware adapters for authentication and
// authorization enforcement built on top of staffauth.Engine.
//
// # Guards
//
//   - [Authenticate] — verifies the bearer access token and injects the auth context.
//   - [RequireRoles] — passes when the authenticated staff member holds any listed role.
//   - [RequirePermission] — resolves a resource/action decision against fresh grants.
//
// Each guard reads the Authorization header, calls the Engine, and injects
// the validated auth context into the request context.
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
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
