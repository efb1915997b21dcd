package book

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/pedrohonorio/biblioteca-virtual/internal/book/entity"
)

// Handler exposes HTTP endpoints for the catalog.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest request body for registering a book.
type CreateRequest struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Year      int    `json:"publication_year"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid book payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	b := &entity.Book{Title: req.Title, Author: req.Author, Publisher: req.Publisher, Year: req.Year}
	created, err := h.svc.Create(r.Context(), b)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookExists):
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": "title already registered"})
		case errors.Is(err, ErrNullBook):
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("book creation failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "book creation failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Warnw("book listing failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "book listing failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, books)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}
	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "book not found"})
			return
		}
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "book lookup failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}
	if err := h.svc.Remove(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "book not found"})
		case errors.Is(err, ErrBookOnLoan):
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": "book is on an active loan"})
		default:
			h.logger.Warnw("book removal failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "book removal failed"})
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
