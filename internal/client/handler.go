package client

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
)

// Handler exposes HTTP endpoints for registration and credential flows.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for the signup endpoint.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	c := &entity.Client{Name: req.Name, Email: req.Email}
	created, err := h.svc.Register(r.Context(), c, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrClientExists):
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrNullClient):
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("registration failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ForgotPasswordRequest request body for the reset-token endpoint.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		// Do not reveal whether the email is registered.
		h.logger.Debugw("forgot password", "err", err)
		if errors.Is(err, ErrInvalidEmail) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

// ChangePasswordRequest request body for the password change endpoint.
type ChangePasswordRequest struct {
	Code            string `json:"code"`
	Email           string `json:"email"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	err := h.svc.ChangePassword(r.Context(), req.Code, req.NewPassword, req.ConfirmPassword, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrPasswordMismatch):
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrInvalidResetCode):
			h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid or expired code"})
		default:
			h.logger.Warnw("password change failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "password change failed"})
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
