// Package password provides Argon2id hashing with PHC-encoded output and
// the composition policy applied to every new password.
package password
