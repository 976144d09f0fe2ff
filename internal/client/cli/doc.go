// Package cli provides the interactive dealer storefront client.
//
// It wires configuration, the local SQLite database, the REST client and the
// services, then runs a REPL. A saved session is restored on start, so a
// dealer who did not log out is logged in again without a password.
//
// Key features:
//   - Login / Logout / WhoAmI
//   - Cart: list, add, increment, decrement, set, remove, clear
//   - Product lookup with available stock
//   - Checkout and order history
//   - Warranty registration
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
