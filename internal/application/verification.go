package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const verificationIssuer = "sublease-marketplace"

// ErrInvalidVerificationToken is returned for tampered, malformed or expired verification tokens.
var ErrInvalidVerificationToken = errors.New("invalid or expired verification token")

// VerificationClaims carries a pending signup until the email address is confirmed.
type VerificationClaims struct {
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	School       *string `json:"school,omitempty"`
	PasswordHash string  `json:"password_hash"`
	jwt.RegisteredClaims
}

// VerificationTokens signs and checks HS256 email verification tokens.
type VerificationTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewVerificationTokens constructs a token codec. A non-positive ttl defaults to 24 hours.
func NewVerificationTokens(secret string, ttl time.Duration, now func() time.Time) *VerificationTokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &VerificationTokens{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue signs claims with an expiry of now + ttl.
func (v *VerificationTokens) Issue(claims VerificationClaims) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", fmt.Errorf("verification secret not configured")
	}
	now := v.now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Email,
		Issuer:    verificationIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Parse verifies the signature and expiry of tokenString and returns its claims.
func (v *VerificationTokens) Parse(tokenString string) (*VerificationClaims, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, fmt.Errorf("verification secret not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &VerificationClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(verificationIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerificationToken, err)
	}
	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid || claims.Email == "" || claims.PasswordHash == "" {
		return nil, ErrInvalidVerificationToken
	}
	return claims, nil
}
