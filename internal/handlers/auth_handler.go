package handlers

import (
	"net/http"

	"bookstore/internal/apperrors"
	"bookstore/internal/metrics"
	"bookstore/internal/middleware"
	"bookstore/internal/models"
	"bookstore/internal/services"

	"github.com/rs/zerolog"
)

const refreshCookie = "refreshToken"

type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r)).Msg("Registration failed")
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, models.RegisterResponse{
		Message: "User registered successfully",
		User:    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), &req)
	if err != nil {
		metrics.RecordLogin("failure")
		respondWithError(w, err)
		return
	}

	token, err := h.authService.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		respondWithError(w, apperrors.Internal("Failed to generate token"))
		return
	}
	refreshToken, err := h.authService.IssueRefreshToken(user.ID)
	if err != nil {
		respondWithError(w, apperrors.Internal("Failed to generate token"))
		return
	}

	metrics.RecordLogin("success")
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refreshToken,
		Path:     "/api/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	respondWithJSON(w, http.StatusOK, models.AuthResponse{
		User:         user,
		Token:        token,
		RefreshToken: refreshToken,
	})
}

// Refresh reads the refresh token from the refreshToken cookie or the JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		refreshToken = cookie.Value
	}
	if refreshToken == "" && r.ContentLength != 0 {
		var req models.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, err)
			return
		}
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		respondWithError(w, apperrors.Unauthenticated("No refresh token provided"))
		return
	}

	token, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, models.AuthResponse{Token: token})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, apperrors.Unauthenticated("User not authenticated"))
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}
