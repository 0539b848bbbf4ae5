// Package session holds the client-side session: the current bearer token and the
// signed-in user's profile, persisted so a restarted process resumes where it left off.
//
// # Persistence layout
//
// Every mutation writes one atomic [Batch] to a [Backend]. The batch carries the
// structured record (key "auth-storage") and, unless legacy keys are disabled, the
// discrete entries "token", "userRole", "userName", "userEmail", "userId" and the
// serialized "user" object that older readers still consume. Because all keys
// travel in the same batch they never drift from each other.
//
// # Architecture boundaries
//
// This package owns the [Store], the [State] and [User] models and the record
// encoding. It does NOT talk to the platform backend, evaluate roles, or decide
// navigation; those belong to the api, permission and middleware packages.
//
// # What this package must NOT do
//
//   - Import examclient, api, or middleware (no upward imports).
//   - Perform network calls other than those of its storage backend.
//   - Log or otherwise expose bearer tokens.
package session
