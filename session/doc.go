// Package session maintains the bounded per-credential refresh-token ring
// in Redis. Entries are keyed by token digest and ordered by creation
// time; the add path prunes expired entries and evicts the oldest live
// entry above capacity inside a single Lua script.
package session
