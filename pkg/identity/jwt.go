package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims read by JWT: sub is the user id, admin grants
// administrative access.
type Claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin,omitempty"`
}

// TokenExtractor returns the raw token of a request or "".
type TokenExtractor func(r *http.Request) string

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// QueryToken reads the token from the named query parameter.
func QueryToken(name string) TokenExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(name)
	}
}

// JWT verifies HS256 tokens signed with secret. Extractors are tried in
// order; BearerToken is used when none are given.
func JWT(secret []byte, extractors ...TokenExtractor) Resolver {
	if len(secret) == 0 {
		panic("identity: empty JWT secret")
	}
	if len(extractors) == 0 {
		extractors = []TokenExtractor{BearerToken}
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(r *http.Request) (Identity, error) {
		var raw string
		for _, extract := range extractors {
			if raw = extract(r); raw != "" {
				break
			}
		}
		if raw == "" {
			return Identity{}, ErrNoIdentity
		}

		var claims Claims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			return Identity{}, errors.Join(ErrInvalidToken, err)
		}
		if claims.Subject == "" {
			return Identity{}, errors.Join(ErrInvalidToken, errors.New("missing sub claim"))
		}
		return Identity{UserID: claims.Subject, Admin: claims.Admin}, nil
	}
}

// IssueToken signs an HS256 token for userID. A zero ttl issues a token
// without expiry.
func IssueToken(secret []byte, userID string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Admin: admin,
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
