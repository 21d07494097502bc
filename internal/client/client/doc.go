// Package client talks to the remote backend-as-a-service.
//
// # Overview
//
//  1. Client is the transport-agnostic contract used by the controllers:
//     account creation, email/password sessions, the current account,
//     verification emails and confirmations, documents and session JWTs.
//  2. HTTPClient implements it over the service's REST API. The session
//     cookie lives in an in-memory cookie jar and is lost when the process
//     exits.
//  3. InitDatabase opens the local SQLite state database and applies the
//     embedded goose migrations.
//
// # Error Handling
//
// Service failures are returned as *APIError, which unwraps to a sentinel:
// ErrUnauthorized, ErrNoSession, ErrInvalidToken, ErrConflict, ErrNotFound,
// ErrBadRequest or ErrUnavailable. Transport failures wrap ErrUnavailable.
package client
