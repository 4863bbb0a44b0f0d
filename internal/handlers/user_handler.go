package handlers

import (
	"net/http"

	"bookstore/internal/apperrors"
	"bookstore/internal/middleware"
	"bookstore/internal/models"
	"bookstore/internal/services"

	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService *services.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService *services.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// UpdateProfile updates the caller's own record. The target is always the token's user.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, apperrors.Unauthenticated("User not authenticated"))
		return
	}

	var req models.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Profile update failed")
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}
