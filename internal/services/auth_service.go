package services

import (
	"context"
	"errors"
	"time"

	"bookstore/internal/apperrors"
	"bookstore/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims is the payload of both token kinds. Refresh tokens leave Role empty.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AuthService issues and verifies stateless access and refresh tokens.
// Tokens cannot be revoked before they expire.
type AuthService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	users         repository.UserRepository
	logger        zerolog.Logger
}

func NewAuthService(cfg TokenConfig, users repository.UserRepository, logger zerolog.Logger) *AuthService {
	return &AuthService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		users:         users,
		logger:        logger,
	}
}

func (s *AuthService) IssueAccessToken(userID, role string) (string, error) {
	token, err := signToken(userID, role, s.accessTTL, s.accessSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error generating access token")
		return "", err
	}
	return token, nil
}

func (s *AuthService) IssueRefreshToken(userID string) (string, error) {
	token, err := signToken(userID, "", s.refreshTTL, s.refreshSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error generating refresh token")
		return "", err
	}
	return token, nil
}

func (s *AuthService) VerifyAccessToken(token string) (*Claims, error) {
	return VerifyToken(token, s.accessSecret)
}

func (s *AuthService) VerifyRefreshToken(token string) (*Claims, error) {
	return VerifyToken(token, s.refreshSecret)
}

// Refresh mints a new access token for the owner of refreshToken.
// The role is read from the user record so refreshed tokens never carry a stale role.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.Unauthenticated("Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn().Str("user_id", claims.UserID).Msg("Refresh token for unknown user")
		return "", apperrors.Unauthenticated("Invalid refresh token")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", claims.UserID).Msg("Error loading user for refresh")
		return "", err
	}

	return s.IssueAccessToken(user.ID, user.Role)
}

func signToken(userID, role string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyToken checks signature and expiry of token against secret.
// Every failure is reported as an Unauthenticated error.
func VerifyToken(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, apperrors.Unauthenticated("Token expired")
	}
	if err != nil || !parsed.Valid {
		return nil, apperrors.Unauthenticated("Invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, apperrors.Unauthenticated("Invalid or expired token")
	}

	return claims, nil
}
