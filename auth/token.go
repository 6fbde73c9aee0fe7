package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pulse-lab/contract"
	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
)

// TokenService issues and verifies the signed, time-bounded identity
// tokens consumed at connect time and at request-authorization time.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Generate creates a signed JWT for a specific user (HS256, HMAC with SHA256).
func (s *TokenService) Generate(userID domain.UserID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(int64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    "pulse-lab",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates the signature and expiration of a token
// string and returns the bound identity.
func (s *TokenService) Verify(tokenString string) (contract.Identity, error) {
	if tokenString == "" {
		return contract.Identity{}, apperrors.ErrAuthRequired
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return contract.Identity{}, apperrors.ErrInvalidIdentity
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return contract.Identity{}, apperrors.ErrInvalidIdentity
	}

	sub, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return contract.Identity{}, apperrors.ErrInvalidIdentity
	}

	identity := contract.Identity{UserID: domain.UserID(sub)}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
