package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
	"github.com/Bruhadev45/Cardsnap-AI/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
	Name     string `json:"name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Name     string `json:"name" validate:"max=100"`
	Password string `json:"password" validate:"max=1024"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if errors.Is(err, service.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "User with this email already exists")
		return
	}
	if err != nil {
		s.logger.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		s.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), ownerID(r))
	if err != nil {
		s.logger.Error("get user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.Update(r.Context(), ownerID(r), req.Email, req.Name, req.Password)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already in use")
		return
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		s.logger.Error("update user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
