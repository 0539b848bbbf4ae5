// Package jwt reads access-token claims on the client side.
//
// The backend signs tokens with a key the client never sees, so claims are
// decoded without signature verification. They are only used for local
// decisions such as refreshing before expiry. Authorization is always
// enforced by the backend.
//
// # Architecture boundaries
//
// This package depends only on github.com/golang-jwt/jwt/v5. It never touches
// the session store or the network.
//
// # What this package must NOT do
//
//   - Treat decoded claims as proof of identity.
//   - Log or persist token strings.
package jwt
