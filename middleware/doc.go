// Package middleware guards protected views of the client against the current
// session.
//
// # Guards
//
//   - [Decide]: pure decision for one state and requirement.
//   - [Guard]: net/http adapter; re-evaluates on every request.
//   - [RequireAdmin]: [Guard] preset for the administrative area.
//   - [RequireSignedIn]: [Guard] preset for any signed-in user.
//
// # Architecture boundaries
//
// This package reads session state through [StateSource] and resolves roles
// through a permission.Registry. Authorization is delegated to
// permission.Authorize; the guard never interprets roles itself.
//
// # What this package must NOT do
//
//   - Mutate the session or call the backend.
//   - Cache a decision across requests.
package middleware
