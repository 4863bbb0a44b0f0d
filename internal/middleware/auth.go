package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"
	"bookstore/internal/services"

	"github.com/rs/zerolog"
)

const (
	TokenHeader = "x-auth-token"
	TokenCookie = "token"
	TokenQuery  = "token"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (*services.Claims, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// ExtractToken returns the first token found in the x-auth-token header,
// an Authorization bearer header, the token cookie, or the token query parameter.
func ExtractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") && token != "" {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(TokenQuery)
}

func Authentication(verifier TokenVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				respondWithAppError(w, apperrors.Unauthenticated("No authentication token provided"))
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Invalid token")
				respondWithAppError(w, apperrors.Unauthenticated("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after Authentication. The role is read from the stored
// user, not the token, so role changes apply before the token expires.
func RequireRole(users UserLookup, logger zerolog.Logger, allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r)
			if !ok {
				respondWithAppError(w, apperrors.Unauthenticated("No authentication token provided"))
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				logger.Error().Err(err).Str("user_id", userID).Msg("Valid token for unknown user")
				respondWithError(w, http.StatusInternalServerError, apperrors.Code(apperrors.ErrInternal), "Server error")
				return
			}

			if !slices.Contains(allowedRoles, user.Role) {
				logger.Warn().Str("user_id", userID).Str("role", user.Role).Str("path", r.URL.Path).Msg("Role not allowed")
				respondWithAppError(w, apperrors.Forbidden("Unauthorized access"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

func GetUserRole(r *http.Request) (string, bool) {
	role, ok := r.Context().Value(UserRoleKey).(string)
	return role, ok
}

func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDKey).(string)
	return id
}
