// Package internal holds shared helpers for challenge secrets and token
// digests used across the engine.
package internal
