// Package credential hashes and verifies user passwords.
//
// New hashes are bcrypt (cost 12 by default) or argon2id depending on
// configuration. Verification dispatches on the hash format, so accounts
// hashed under either scheme keep working after the configured algorithm
// changes. Verification never returns an error: an unreadable hash simply
// does not match.
//
// Callers persisting a user must go through Manager.HashIfChanged so that a
// stored hash is only replaced when a new plaintext password was supplied.
package credential
