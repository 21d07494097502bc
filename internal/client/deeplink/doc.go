// Package deeplink turns inbound URLs into verification tokens and delivers
// them to whoever listens.
//
// Links reach the Dispatcher from three sources: the link the program was
// started with (SetInitial, replayed to every new subscriber), links typed
// into the REPL, and the loopback HTTP Receiver that the verification
// redirect page forwards to. Parse decides whether a link carries a token;
// links without one are not errors.
package deeplink
