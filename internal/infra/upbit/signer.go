package upbit

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"autotrade_go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer builds the JWT bearer token Upbit expects on private endpoints.
type Signer struct {
	accessKey string
	secretKey string
}

// NewSigner creates a new Signer instance
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{accessKey: accessKey, secretKey: secretKey}
}

// HasCredentials reports whether both keys are present.
func (s *Signer) HasCredentials() bool {
	return s.accessKey != "" && s.secretKey != ""
}

// Authorization returns the value of the Authorization header.
// query is the url-encoded parameter string, empty if the call has none.
func (s *Signer) Authorization(query string) (string, error) {
	if !s.HasCredentials() {
		return "", domain.ErrMissingCredentials
	}

	claims := jwt.MapClaims{
		"access_key": s.accessKey,
		"nonce":      uuid.NewString(),
	}
	if query != "" {
		claims["query_hash"] = hashQuery(query)
		claims["query_hash_alg"] = "SHA512"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}
	return "Bearer " + signed, nil
}

func hashQuery(query string) string {
	sum := sha512.Sum512([]byte(query))
	return hex.EncodeToString(sum[:])
}
