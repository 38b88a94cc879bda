package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"vitrina/auth"
	"vitrina/favorite"
	"vitrina/message"
	"vitrina/profile"
	"vitrina/review"
)

// Service interfaces keep handlers stubbable in tests.

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (auth.LoginResult, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	Logout(ctx context.Context, claims auth.Claims) error
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
	UpdateProfile(ctx context.Context, userID string, patch auth.ProfilePatch) (*auth.User, error)
	VerifyToken(ctx context.Context, token string) (auth.Claims, error)
}

type profileService interface {
	GetByID(ctx context.Context, id string) (profile.Listing, error)
	List(ctx context.Context, filter profile.ListFilter) ([]profile.Listing, error)
	Create(ctx context.Context, params profile.CreateParams) (profile.Listing, error)
	Update(ctx context.Context, callerID, id string, params profile.UpdateParams) (profile.Listing, error)
	IncrementViews(ctx context.Context, id string) error
}

type favoriteService interface {
	List(ctx context.Context, userID string) ([]favorite.Favorite, error)
	Add(ctx context.Context, userID, listingID string) error
	Remove(ctx context.Context, userID, listingID string) error
}

type reviewService interface {
	ListForListing(ctx context.Context, listingID string) ([]review.Review, review.Summary, error)
	Create(ctx context.Context, listingID, authorID string, rating int, text string) (review.Review, error)
	MarkHelpful(ctx context.Context, reviewID string, helpful bool) (review.Review, error)
}

type messageService interface {
	Send(ctx context.Context, senderID, recipientID, text string) (message.Message, error)
	Thread(ctx context.Context, userID, partnerID string) ([]message.Message, error)
	Conversations(ctx context.Context, userID string) ([]message.Conversation, error)
}

// Server carries the wired services and exposes the REST API.
type Server struct {
	authService     authService
	profileService  profileService
	favoriteService favoriteService
	reviewService   reviewService
	messageService  messageService
	log             *zap.Logger
}

// routes builds the API handler tree.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("PUT /api/users/me", s.requireAuth(s.handleUpdateMe))

	mux.HandleFunc("GET /api/profiles", s.handleListings)
	mux.HandleFunc("POST /api/profiles", s.requireAuth(s.handleCreateListing))
	mux.HandleFunc("GET /api/profiles/{id}", s.handleListing)
	mux.HandleFunc("PUT /api/profiles/{id}", s.requireAuth(s.handleUpdateListing))
	mux.HandleFunc("POST /api/profiles/{id}/view", s.handleListingView)

	mux.HandleFunc("GET /api/favorites", s.requireAuth(s.handleFavorites))
	mux.HandleFunc("POST /api/favorites/{id}", s.requireAuth(s.handleAddFavorite))
	mux.HandleFunc("DELETE /api/favorites/{id}", s.requireAuth(s.handleRemoveFavorite))

	mux.HandleFunc("GET /api/reviews/{id}", s.handleReviews)
	mux.HandleFunc("POST /api/reviews/{id}", s.requireAuth(s.handleCreateReview))
	mux.HandleFunc("POST /api/reviews/{id}/helpful", s.requireAuth(s.handleReviewHelpful))

	mux.HandleFunc("GET /api/messages/conversations", s.requireAuth(s.handleConversations))
	mux.HandleFunc("GET /api/messages/{userId}", s.requireAuth(s.handleThread))
	mux.HandleFunc("POST /api/messages", s.requireAuth(s.handleSendMessage))

	return s.logRequests(mux)
}

// Envelope helpers. Every response is {success, message?, data?}.

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	payload := map[string]any{"success": true}
	if data != nil {
		payload["data"] = data
	}
	writeJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Wire DTOs.

type userResponse struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	City            string  `json:"city"`
	Avatar          string  `json:"avatar,omitempty"`
	Verified        bool    `json:"verified"`
	ProfileComplete bool    `json:"profileComplete"`
	LastLogin       *string `json:"lastLogin,omitempty"`
}

func toUserResponse(u auth.User) userResponse {
	resp := userResponse{
		ID:              u.ID,
		Email:           u.Email,
		Role:            string(u.Role),
		Name:            u.Name,
		Phone:           u.Phone,
		City:            u.City,
		Avatar:          u.Avatar,
		Verified:        u.Verified,
		ProfileComplete: u.ProfileComplete(),
	}
	if !u.LastLogin.IsZero() {
		ts := u.LastLogin.Format(time.RFC3339)
		resp.LastLogin = &ts
	}
	return resp
}

// Auth handlers.

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	result, err := s.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "Este email ya está registrado")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "La contraseña debe tener al menos 6 caracteres")
		default:
			s.serverError(w, "register", err)
		}
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"user":  toUserResponse(result.User),
		"token": result.Token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Credenciales inválidas")
			return
		}
		s.serverError(w, "login", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"user":  toUserResponse(result.User),
		"token": result.Token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authService.Logout(r.Context(), claimsFrom(r.Context())); err != nil {
		s.serverError(w, "logout", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.authService.GetUserByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "No autorizado")
			return
		}
		s.serverError(w, "me", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user": toUserResponse(*user)})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch auth.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	user, err := s.authService.UpdateProfile(r.Context(), userIDFrom(r.Context()), patch)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "Usuario no encontrado")
			return
		}
		s.serverError(w, "update profile", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user": toUserResponse(*user)})
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error("handler failure", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Error interno del servidor")
}
