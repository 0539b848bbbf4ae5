// Package permission provides the role model used by examclient authorization checks:
// the [Role] enumeration, a [Registry] that maps backend role names and numeric role
// ids onto it, and the single authorization predicate [Authorize].
//
// # Role resolution
//
// The backend reports a user's role twice: as a role name ("admin", "student", ...)
// and as a numeric role id. [Registry.Resolve] accepts both. A known role name wins;
// otherwise the role id mapping is consulted; otherwise the role is [RoleUnknown].
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Roles are not a
// hierarchy: a [Requirement] lists every role it accepts.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import examclient, session, or api.
//   - Infer privileges from role ordering.
package permission
