// Package fakeapi is an in-memory stand-in for the exam platform backend.
//
// It implements the auth routes, generic resource CRUD, AI passthrough routes
// and image uploads under /api/v1 with the same JSON shapes and error bodies
// as the real service. Tokens are HS256 JWTs with a configurable lifetime.
// Every request is counted per route so tests can assert that a flow never
// reached the network.
//
// It backs package tests and the examples/fakebackend dev server.
package fakeapi
