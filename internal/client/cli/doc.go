// Package cli provides the interactive appauth command-line client.
//
// It wires configuration, the account service client, local state, the
// deep-link dispatcher and both controllers, and runs a REPL in place of the
// login and verification screens of a mobile app.
//
// Key features:
//   - Signup / Login / Logout with an unverified-email reminder
//   - Verification view driven by deep links (start-up link, "open <url>",
//     or the optional loopback receiver) and resend
//   - Reconcile of signup steps that failed after the account was created
//   - Short-lived JWT issuance for the session
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
