package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/sublease-marketplace/internal/application"
	"github.com/example/sublease-marketplace/internal/logging"
)

type userService interface {
	Signup(ctx context.Context, params application.SignupParams) (application.SignupResult, error)
	Verify(ctx context.Context, token string) (application.User, error)
	Profile(ctx context.Context, userID string) (application.Profile, error)
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := logging.OrDefault(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Scoped(ctx, h.logger, "handler", "UserHandler", operation, attrs...)
}

// Signup handles POST /signup. It answers 201 with the user, or 202 when a verification email
// was sent instead.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Signup", "error_kind", codeBadRequest).WarnContext(r.Context(), "failed to decode signup request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Signup")
	result, err := h.service.Signup(r.Context(), application.SignupParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		School:    req.School,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "signup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if result.VerificationSent {
		logger.InfoContext(r.Context(), "verification email sent")
		h.responder.writeJSON(r.Context(), w, http.StatusAccepted, signupResponse{
			VerificationSent: true,
			Message:          "check your email to verify your account",
		})
		return
	}

	logger.With("user_id", result.User.ID).InfoContext(r.Context(), "user signed up")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, signupResponse{User: toUserDTOPtr(*result.User)})
}

// Verify handles GET /verify?token=.
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Verify")
	user, err := h.service.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		logger.WarnContext(r.Context(), "verification failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "email verified")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, signupResponse{User: toUserDTOPtr(user)})
}

// Profile handles GET /profile for the authenticated principal.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Profile", "principal_id", principal.UserID)

	profile, err := h.service.Profile(r.Context(), principal.UserID)
	if err != nil {
		logger.ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{
		User:     toUserDTO(profile.User),
		Listings: toListingDTOs(profile.Listings),
	})
}

// PublicProfile handles GET /profile/{id}: any visitor may look up a user and their listings.
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "PublicProfile", "user_id", userID)

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		logger.WarnContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{
		User:     toUserDTO(profile.User),
		Listings: toListingDTOs(profile.Listings),
	})
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(users)).DebugContext(r.Context(), "users listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listUsersResponse{Users: toUserDTOs(users)})
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	School    string `json:"school"`
}

type signupResponse struct {
	User             *userDTO `json:"user,omitempty"`
	VerificationSent bool     `json:"verification_sent,omitempty"`
	Message          string   `json:"message,omitempty"`
}

type profileResponse struct {
	User     userDTO      `json:"user"`
	Listings []listingDTO `json:"listings"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

type userDTO struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	School    *string `json:"school,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		School:    user.School,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toUserDTOPtr(user application.User) *userDTO {
	dto := toUserDTO(user)
	return &dto
}

func toUserDTOs(users []application.User) []userDTO {
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	return out
}
