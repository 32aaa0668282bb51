// Package jwttoken validates the bearer tokens minted by the external auth
// service. Session issuance lives outside this repo; the core only needs to
// check a token's signature and extract the acting staff member.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medledger/internal/platform/middleware"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// Claims are the JWT claims carried by staff access tokens.
type Claims struct {
	StaffID string `json:"staff_id"`
	jwt.RegisteredClaims
}

// Service validates HS256-signed staff tokens.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// ValidateToken parses and verifies a staff access token.
func (s *Service) ValidateToken(tokenString string) (*middleware.StaffClaims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	staffID, err := id.ParseStaffID(claims.StaffID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing staff identity")
	}
	return &middleware.StaffClaims{StaffID: staffID}, nil
}

// GenerateToken mints a staff token. Production tokens come from the auth
// service; this exists for dev tooling and handler tests.
func (s *Service) GenerateToken(staffID id.StaffID, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		StaffID: staffID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}
