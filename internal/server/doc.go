// Package server provides the HTTP server for the issuer and verifier services.
//
// The server is configured through environment variables
// (see internal/config/config.go for details).
// Both services share the router setup, the request tracker and the status endpoint;
// the service type decides which of the issuance or verification routes are registered.
//
// middleware is in internal/server/middleware
package server
