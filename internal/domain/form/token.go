package form

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
)

// TokenLength is the length of an issued client token
const TokenLength = 8

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrInvalidToken is returned when a token does not have the issued shape
var ErrInvalidToken = shared.NewDomainError("INVALID_TOKEN", "Token must be 8 uppercase letters or digits")

// GenerateToken returns a random 8 character uppercase alphanumeric token.
// Tokens identify a record; they are not secrets.
func GenerateToken() (string, error) {
	var sb strings.Builder
	sb.Grow(TokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < TokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(tokenAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeToken trims whitespace and upper-cases a human-typed token
func NormalizeToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// ValidateToken checks an already normalized token
func ValidateToken(token string) error {
	if len(token) != TokenLength {
		return ErrInvalidToken
	}
	for i := 0; i < len(token); i++ {
		if strings.IndexByte(tokenAlphabet, token[i]) < 0 {
			return ErrInvalidToken
		}
	}
	return nil
}
