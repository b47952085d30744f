// Package auth holds the identity primitives of the service: bearer token
// issuance and verification, password hashing, and the pure authorization
// policy applied to role-management requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT payload: the subject id and the role it held at issuance.
type Claims struct {
	UserID string      `json:"id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the verified identity behind a request.
type Principal struct {
	UserID    string
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 bearer tokens with a fixed secret.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// IssuerOption customises a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock replaces time.Now, so expiry can be simulated.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer builds an issuer whose tokens live for validity.
func NewTokenIssuer(secret []byte, validity time.Duration, opts ...IssuerOption) *TokenIssuer {
	i := &TokenIssuer{secret: secret, validity: validity, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue returns a signed token for userID carrying role.
func (i *TokenIssuer) Issue(userID string, role models.Role) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. It returns common.ErrTokenExpired for
// an outdated token and common.ErrInvalidToken for anything else wrong.
func (i *TokenIssuer) Verify(tokenString string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	return &Principal{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
