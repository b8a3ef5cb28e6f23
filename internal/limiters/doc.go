// Package limiters implements the failed-login lockout state machine on
// Redis. All state transitions run inside a single Lua script so
// concurrent failures against one credential never race the counter.
package limiters
