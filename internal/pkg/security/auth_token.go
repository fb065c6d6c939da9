package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingSecret = errors.New("secret is required for token handling")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// AuthTokenClaims is the payload of the login cookie.
type AuthTokenClaims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

// GenerateAuthToken signs an HS256 token for userID valid for ttl.
func GenerateAuthToken(userID uint, ttl time.Duration, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	if userID == 0 {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := AuthTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyAuthToken parses and validates a token created by GenerateAuthToken.
func VerifyAuthToken(token, secret string) (*AuthTokenClaims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	parsed, err := jwt.ParseWithClaims(token, &AuthTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*AuthTokenClaims)
	if !ok || !parsed.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
