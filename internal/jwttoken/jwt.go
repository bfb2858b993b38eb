package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"regportal/internal/platform/middleware"
	dErrors "regportal/pkg/domain-errors"
)

// Claims represents the JWT claims for officer session tokens.
type Claims struct {
	OfficerID          string `json:"officer_id"`
	ApplicationID      string `json:"application_id"`
	RegistrationNumber string `json:"registration_number"`
	CompanyName        string `json:"company_name"`
	Role               string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles officer token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateOfficerToken signs a session token carrying the officer's identity
// and the application it is bound to.
func (s *JWTService) GenerateOfficerToken(
	officerID uuid.UUID,
	applicationID uuid.UUID,
	registrationNumber string,
	companyName string,
	expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OfficerID:          officerID.String(),
		ApplicationID:      applicationID.String(),
		RegistrationNumber: registrationNumber,
		CompanyName:        companyName,
		Role:               "officer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken parses and validates a signed officer token.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	if claims.Role != "officer" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}

	return claims, nil
}

// ValidateOfficerToken adapts ValidateToken to the middleware contract.
func (s *JWTService) ValidateOfficerToken(tokenString string) (*middleware.OfficerClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	officerID, err := uuid.Parse(claims.OfficerID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	applicationID, err := uuid.Parse(claims.ApplicationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.OfficerClaims{
		OfficerID:          officerID,
		ApplicationID:      applicationID,
		RegistrationNumber: claims.RegistrationNumber,
	}, nil
}
