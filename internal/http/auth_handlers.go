package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"zenith-backend/internal/models"
	"zenith-backend/internal/services"
)

type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	res, err := s.Identity.Signup(r.Context(), services.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, tokenResponse(res))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}
	res, err := s.Identity.Login(r.Context(), identifier, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tokenResponse(res))
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeUnauthorized(w)
		return
	}
	res, err := s.Identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tokenResponse(res))
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := CurrentActor(r)
	user, err := s.Identity.Me(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]UserDTO{"user": userDTO(*user, true)})
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	if req.ConfirmPassword != "" && req.NewPassword != req.ConfirmPassword {
		WriteError(w, http.StatusBadRequest, services.CodeValidation, "Password confirmation does not match")
		return
	}
	actor, _ := CurrentActor(r)
	if err := s.Identity.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) UserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.Identity.GetUserProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, userProfileResponse(profile))
}
