// Package client is the REST client of the dealer storefront API.
//
// # Overview
//
// Requests pass through three layers, each a Doer:
//  1. httpTransport sends one attempt. It resolves the path against the base
//     URL, applies the per-attempt timeout and the optional rate limit, and
//     maps the status code to an *APIError.
//  2. retryTransport retries Network-kind failures with exponential backoff.
//     HTTP errors are never retried.
//  3. authTransport attaches the bearer token from the credential store and,
//     on 401, asks the RefreshCoordinator for a new token and replays the
//     request once.
//
// RESTClient composes the layers and implements Client.
//
// # Error Handling
//
// Every failure is an *APIError with a Kind. Match with errors.Is against
// ErrNetwork, ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound,
// ErrServer or ErrGeneric, or use KindOf. UserMessage renders the text shown
// to the dealer.
//
// # Local database
//
// InitDatabase opens the client's SQLite file and applies the embedded goose
// migrations.
package client
