// Package auth verifies connection credentials during admission. Two
// credential shapes are supported: a shared service secret for trusted
// backend callers and a signed bearer token carrying a wallet claim.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Trusted headers set during admission and read at connect time.
// Identity is verified exactly once, before the upgrade.
const (
	HeaderWallet   = "X-Wallet"
	HeaderUsername = "X-Username"
	HeaderService  = "X-Service"
)

type tokenClaims struct {
	Wallet   string `json:"wallet"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Claims is the verified payload of a signed token.
type Claims struct {
	Wallet   string
	Username string
}

// VerifyToken checks the HS256 signature and expiry of tokenString and
// requires a wallet claim.
func VerifyToken(tokenString, tokenSecret string) (Claims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(tokenSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("internal/auth: failed to parse token: %w", err)
	}

	if !token.Valid {
		return Claims{}, errors.New("internal/auth: token is invalid")
	}

	if claims.Wallet == "" {
		return Claims{}, errors.New("internal/auth: wallet claim is missing")
	}

	return Claims{Wallet: claims.Wallet, Username: claims.Username}, nil
}

// TokenFromRequest extracts the bearer token. The token query parameter
// takes precedence over the Authorization header when both are present.
func TokenFromRequest(r *http.Request) string {
	if fromQuery := r.URL.Query().Get("token"); fromQuery != "" {
		return fromQuery
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}
