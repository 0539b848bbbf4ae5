// Package flows contains pure-function orchestrators for every Client auth
// operation.
//
// Each flow function (RunLogin, RunOAuthCallback, RunSetPassword, RunLogout,
// RunRestore, RunRefresh) accepts a typed dependency struct and returns
// results without side-effects beyond those dependencies. This keeps the
// Client type thin and lets every branch be tested with plain closures.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the backend, the session store, the
// role registry, audit and metrics. They do NOT own any of these resources;
// ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root examclient package (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency closures.
package flows
