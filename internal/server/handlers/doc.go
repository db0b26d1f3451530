// Package handlers provides the HTTP handlers shared by the issuer and verifier
// (landing page, health, version and request status).
//
// The issuance, verification and callback endpoints live in their own packages.
package handlers
