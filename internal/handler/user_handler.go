package handler

import (
	"fmt"
	"net/http"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/service"
	"go-auth-service/pkg/apierror"
)

type UserHandler struct {
	service *service.AuthService
}

func NewUserHandler(service *service.AuthService) *UserHandler {
	return &UserHandler{service: service}
}

// Dashboard returns the authenticated user's public fields.
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, fmt.Sprintf("Welcome %s!", user.Name), map[string]any{"user": user})
}

func (h *UserHandler) Public(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "This is a public endpoint", nil)
}
