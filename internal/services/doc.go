// Package services provides the external service integrations used by the issuer and verifier.
//
// This package wraps the outbound dependencies (token acquisition, the Verified ID Request Service,
// the Microsoft Graph directory) behind small interfaces so handlers can be tested with fakes.
//
// Each client returns typed errors:
//   - AuthenticationError when an access token cannot be acquired
//   - UpstreamError when the remote API rejects the call or cannot be reached
//   - ErrUserNotFound / ErrPhotoNotFound for directory lookups with no result
package services
