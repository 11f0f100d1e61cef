// Package errors provides structured error handling with error codes for the
// adres gateway.
//
// The taxonomy distinguishes caller mistakes (INVALID_REQUEST), verdicts from
// the external identity provider (INVALID_GRANT, TOKEN_INVALID), transport
// failures reaching the provider (UPSTREAM_TIMEOUT, UPSTREAM_UNAVAILABLE),
// local directory faults (DIRECTORY_LOOKUP_FAILED) and authorization denials
// (POLICY_DENIED). Each code maps to an HTTP status and to the OAuth2 wire
// error string used in {error, error_description} bodies.
//
// # Basic Usage
//
//	import "github.com/adres-gov/adres-gateway/pkg/errors"
//
//	// Create a typed error
//	err := errors.InvalidGrant("authorization code already redeemed")
//
//	// Wrap an underlying error
//	err := errors.Wrap(netErr, errors.ErrCodeUpstreamUnavailable, "token endpoint unreachable")
//
//	// Inspect codes across wrapping
//	if errors.IsCode(err, errors.ErrCodeInvalidGrant) {
//		// prompt re-authentication instead of retrying
//	}
package errors
