// Package permission resolves effective access decisions from layered role
// grants and per-staff overrides.
//
// Roles carry resource grants (resource + allowed actions); overrides are
// per-staff exceptions that either revoke a resource entirely or grant
// extra actions on it. [Resolve] applies the precedence rules; the engine
// re-resolves against freshly loaded profile data on every check so role
// and override edits take effect immediately.
package permission
