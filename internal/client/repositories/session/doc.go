// Package session implements the durable key/value store holding the
// operator's access and refresh tokens.
//
// SQLiteRepository keeps them in the "session" table created by the embedded
// goose migrations; MemoryStore is a process-local variant used where no
// database is wanted.
package session
