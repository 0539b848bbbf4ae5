// Package examclient is the client-side session layer of the exam platform.
//
// A [Client] owns one persisted session (token plus user profile), an HTTP
// client that authorizes every backend call with that session, and the
// authentication flows that create and destroy it: password login with a role
// requirement, the Google OAuth callback, set-password for OAuth accounts and
// logout. Client methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// examclient is the public surface. It exposes [Client], [Builder], [Config]
// and value types. Flow orchestration lives in internal/flows, persistence in
// package session, the request pipeline in package api and the route guard in
// package middleware. Role semantics come from package permission and are
// shared by login and the guard.
//
// # What this package must NOT do
//
//   - Navigate or render. Flows return the target view and a message; the
//     caller decides what to show.
//   - Retry requests or refresh tokens behind the caller's back.
//   - Shape exam, question or AI payloads. Resource calls pass JSON through.
//   - Import any sub-package that re-imports examclient.
package examclient
