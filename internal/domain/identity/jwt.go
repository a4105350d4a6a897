// Package identity validates tokens issued by the identity collaborator and
// maps their claims to the request principal. Token issuance lives outside
// this service.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "stocktally/internal/core/context"
)

// JWTConfig holds JWT validation configuration.
type JWTConfig struct {
	Secret string
	Issuer string
	Leeway time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret: secret,
		Issuer: "stocktally",
		Leeway: 30 * time.Second,
	}
}

// Claims represents the token claims the identity collaborator issues.
type Claims struct {
	jwt.RegisteredClaims
	UserID           string `json:"uid"`
	Email            string `json:"email"`
	Name             string `json:"name,omitempty"`
	BranchID         *int64 `json:"bid,omitempty"`
	SelectedBranchID *int64 `json:"sbid,omitempty"`
	IsAdmin          bool   `json:"adm,omitempty"`
}

// JWTService validates access tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// ValidateToken validates JWT and returns the user context.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(s.config.Leeway)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &appctx.UserContext{
		UserID:           claims.UserID,
		Email:            claims.Email,
		Name:             claims.Name,
		BranchID:         claims.BranchID,
		SelectedBranchID: claims.SelectedBranchID,
		IsAdmin:          claims.IsAdmin,
	}, nil
}
