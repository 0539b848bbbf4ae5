// Package api is the authorizing HTTP pipeline shared by every backend call.
//
// A [Client] joins request paths onto the configured backend root and API
// prefix, encodes JSON bodies and decodes JSON responses. Its [Transport]
// reads the current session before each request to attach the bearer token,
// and forces a session logout whenever the backend answers 401.
//
// # Architecture boundaries
//
// The package sees the session only through [SessionSource] and
// [Invalidator]; it never imports flow logic and never navigates. Callers
// decide what a forced logout means for their UI.
//
// # What this package must NOT do
//
//   - Retry or replay requests after a 401.
//   - Log token values.
//   - Shape resource payloads; bodies pass through as JSON.
package api
