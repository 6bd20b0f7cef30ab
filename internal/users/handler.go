package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Handler handles HTTP requests for accounts and authentication.
type Handler struct {
	service *Service
	repo    Repository
	logger  *logging.Logger
}

// NewHandler creates a new users handler.
func NewHandler(service *Service, repo Repository, logger *logging.Logger) *Handler {
	return &Handler{service: service, repo: repo, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login requests.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			respond.Error(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, ErrInactiveAccount):
			respond.Error(w, http.StatusForbidden, "account is inactive")
		default:
			h.logger.Error("login failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	h.logger.Info("user logged in", "user_id", pair.User.ID, "role", pair.User.Role)
	respond.JSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh requests.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	respond.JSON(w, http.StatusOK, pair)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset handles POST /auth/password-reset requests. The
// response is 202 regardless of whether the email exists.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error("password reset request failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not process request")
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{"detail": "if the email exists, a reset link has been sent"})
}

type passwordResetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm requests.
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		var fields fielderr.Fields
		switch {
		case errors.As(err, &fields):
			respond.ValidationError(w, err)
		case errors.Is(err, ErrResetTokenInvalid):
			respond.Error(w, http.StatusBadRequest, "reset token is invalid or expired")
		default:
			h.logger.Error("password reset failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "could not reset password")
		}
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"detail": "password updated"})
}

// Me handles GET /users/me requests.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	u, err := h.repo.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "user not found")
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

// CreateUser handles POST /users requests (staff accounts, admin only).
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	h.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	respond.JSON(w, http.StatusCreated, u)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error) {
	var fields fielderr.Fields
	switch {
	case errors.As(err, &fields):
		respond.ValidationError(w, err)
	case errors.Is(err, ErrDuplicateCedula):
		respond.JSON(w, http.StatusConflict, fielderr.New("cedula", "This ID number is already registered."))
	case errors.Is(err, ErrDuplicateEmail):
		respond.JSON(w, http.StatusConflict, fielderr.New("email", "This email is already registered."))
	default:
		h.logger.Error("failed to create user", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not create user")
	}
}

// ListUsersResponse is the response for listing users.
type ListUsersResponse struct {
	Users []*User `json:"users"`
	Count int     `json:"count"`
}

// ListUsers handles GET /users requests.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}
	q := r.URL.Query()

	if roleStr := q.Get("role"); roleStr != "" {
		if role, err := strconv.Atoi(roleStr); err == nil {
			filter.Role = role
		}
	}
	if activeStr := q.Get("active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			filter.Active = &active
		}
	}
	filter.Search = q.Get("search")
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not list users")
		return
	}
	respond.JSON(w, http.StatusOK, ListUsersResponse{Users: list, Count: len(list)})
}

// GetUser handles GET /users/{userID} requests.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to get user", "error", err, "user_id", id)
		respond.Error(w, http.StatusInternalServerError, "could not get user")
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

// UpdateUser handles PATCH /users/{userID} requests.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "could not get user")
		return
	}

	if err := req.Apply(u); err != nil {
		respond.ValidationError(w, err)
		return
	}
	if err := h.repo.Update(r.Context(), u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			respond.JSON(w, http.StatusConflict, fielderr.New("email", "This email is already registered."))
			return
		}
		h.logger.Error("failed to update user", "error", err, "user_id", id)
		respond.Error(w, http.StatusInternalServerError, "could not update user")
		return
	}

	h.logger.Info("user updated", "user_id", u.ID)
	respond.JSON(w, http.StatusOK, u)
}
