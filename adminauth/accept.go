// Package adminauth verifies administrator identity for the HTTP surface.
// It accepts first-party HS256 tokens, federated tokens from configured
// issuers (verified against their JWKS), or static bcrypt-hashed API keys.
package adminauth

import "time"

// AcceptConfig configures verification of admin bearer tokens.
type AcceptConfig struct {
	// Issuers lists external identity providers whose tokens are accepted.
	Issuers []IssuerAccept
	// HMACSecret enables first-party HS256 tokens when non-empty.
	HMACSecret []byte
	// Skew is the acceptable clock skew for time-based claims.
	Skew time.Duration
}

// IssuerAccept describes how to accept tokens from a specific issuer.
type IssuerAccept struct {
	Issuer   string
	Audience string // expected audience for this service (single value)
	JWKSURL  string
	CacheTTL time.Duration
}
