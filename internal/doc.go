// Package internal holds code that is private to examclient.
//
// # Sub-packages
//
//   - flows: dependency-injected orchestrators behind every Client auth operation
//   - fakeapi: in-memory exam backend used by tests, the load test and examples/fakebackend
//
// Nothing here appears in the public examclient API.
package internal
