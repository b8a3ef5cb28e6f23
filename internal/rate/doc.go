// Package rate provides Redis-backed fixed-window rate limiting for login
// attempts and password-reset requests. A shared Redis gives every engine
// instance the same view of the window; deployments running isolated
// per-process Redis instances only get per-instance limits.
package rate
