package handlers

import (
	"errors"
	"net/http"

	"goodthings/internal/models"
	"goodthings/internal/repository"
	"goodthings/internal/service"
)

type TokenResponse struct {
	Token string `json:"token"`
}

type MeResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, token, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			WriteError(w, "User already exists", http.StatusBadRequest)
			return
		}
		h.Logger.Error("register user", "error", err)
		WriteError(w, "Server error", http.StatusInternalServerError)
		return
	}

	h.Logger.Info("user registered", "user_id", user.UserID)
	writeSuccess(w, TokenResponse{Token: token}, http.StatusOK)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	_, token, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			WriteError(w, "Invalid credentials", http.StatusBadRequest)
			return
		}
		h.Logger.Error("login", "error", err)
		WriteError(w, "Server error", http.StatusInternalServerError)
		return
	}

	writeSuccess(w, TokenResponse{Token: token}, http.StatusOK)
}

// Me - account behind the request's token
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, "Token is not valid", http.StatusUnauthorized)
		return
	}

	user, err := h.AuthService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			WriteError(w, "Token is not valid", http.StatusUnauthorized)
			return
		}
		h.Logger.Error("get current user", "user_id", userID, "error", err)
		WriteError(w, "Server error", http.StatusInternalServerError)
		return
	}

	writeSuccess(w, MeResponse{ID: user.UserID, Name: user.Name, Email: user.Email}, http.StatusOK)
}
