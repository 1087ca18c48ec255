package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "snsapp"

// TokenKind separates short-lived access tokens from refresh tokens; a
// token is only accepted where its kind is expected.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

func (k TokenKind) ttl() time.Duration {
	if k == RefreshToken {
		return 7 * 24 * time.Hour
	}
	return 15 * time.Minute
}

type Claims struct {
	UserID string    `json:"user_id"`
	Kind   TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

var (
	signTokenFn       = (*Issuer).Sign
	parseWithClaimsFn = jwt.ParseWithClaims
)

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Sign returns a token of the given kind and its expiry.
func (i *Issuer) Sign(userID string, kind TokenKind) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(kind.ttl())
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// Verify parses token and checks signature, expiry and kind.
func (i *Issuer) Verify(token string, kind TokenKind) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: %s token used as %s token", ErrTokenInvalid, claims.Kind, kind)
	}
	return claims, nil
}
