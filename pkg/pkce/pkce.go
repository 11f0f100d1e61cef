package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

// ChallengeMethod represents the PKCE challenge method
type ChallengeMethod string

const (
	// ChallengePlain represents the "plain" challenge method (not recommended for production)
	ChallengePlain ChallengeMethod = "plain"
	// ChallengeS256 represents the "S256" challenge method (recommended)
	ChallengeS256 ChallengeMethod = "S256"
)

// verifierBytes is the amount of randomness behind a verifier. 32 bytes
// base64url-encode to exactly 43 characters, the RFC 7636 minimum.
const verifierBytes = 32

// Pair holds a code verifier and its derived challenge for one authorization
// attempt. The verifier is the secret half and must never appear in redirect
// URLs or logs; the challenge is public.
type Pair struct {
	Verifier  string
	Challenge string
	Method    ChallengeMethod
}

// NewPair generates a fresh verifier and derives its S256 challenge.
// An entropy failure is returned as an error and must be treated as fatal
// by the caller; an authorization attempt cannot proceed without it.
func NewPair() (*Pair, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, err
	}
	return &Pair{
		Verifier:  verifier,
		Challenge: DeriveChallenge(verifier),
		Method:    ChallengeS256,
	}, nil
}

// GenerateVerifier produces a cryptographically random code verifier.
// The verifier uses the unreserved characters [A-Z] / [a-z] / [0-9] / "-" /
// "." / "_" / "~" with a length between 43 and 128 characters, per RFC 7636.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DeriveChallenge computes the S256 code challenge for a verifier:
// base64url(SHA-256(ascii(verifier))) without padding. Deterministic, so the
// provider's own S256 derivation reproduces it byte for byte.
func DeriveChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyChallenge validates that a code verifier matches the given code
// challenge under the stated method.
func VerifyChallenge(verifier, challenge string, method ChallengeMethod) error {
	if verifier == "" {
		return fmt.Errorf("code verifier cannot be empty")
	}
	if challenge == "" {
		return fmt.Errorf("code challenge cannot be empty")
	}
	if len(verifier) < 43 || len(verifier) > 128 {
		return fmt.Errorf("code verifier must be between 43 and 128 characters")
	}
	if !isValidVerifier(verifier) {
		return fmt.Errorf("code verifier contains invalid characters")
	}

	switch method {
	case ChallengePlain:
		if subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) != 1 {
			return fmt.Errorf("code verifier does not match challenge")
		}
	case ChallengeS256:
		derived := DeriveChallenge(verifier)
		if subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) != 1 {
			return fmt.Errorf("code verifier does not match challenge")
		}
	default:
		return fmt.Errorf("unsupported challenge method: %s", method)
	}

	return nil
}

// IsValidChallengeMethod checks if the given challenge method is valid
func IsValidChallengeMethod(method string) bool {
	return method == string(ChallengePlain) || method == string(ChallengeS256)
}

// isValidVerifier checks if the code verifier contains only allowed characters
func isValidVerifier(verifier string) bool {
	const allowed = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
	for _, char := range verifier {
		if !strings.ContainsRune(allowed, char) {
			return false
		}
	}
	return true
}
