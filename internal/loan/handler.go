package loan

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
)

// Handler exposes HTTP endpoints for the loan lifecycle.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// BorrowRequest request body for creating a loan. The due date is the only
// client-supplied date; the loan date is stamped server side.
type BorrowRequest struct {
	ClientID int64   `json:"client_id"`
	BookIDs  []int64 `json:"book_ids"`
	DueDate  string  `json:"due_date"` // YYYY-MM-DD
}

func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid borrow payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	var due time.Time
	if req.DueDate != "" {
		var err error
		due, err = time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid due_date, expected YYYY-MM-DD"})
			return
		}
	}
	l := &entity.Loan{ClientID: req.ClientID, BookIDs: req.BookIDs, DueDate: due}
	created, err := h.svc.Borrow(r.Context(), l)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ReturnRequest request body for closing a loan.
type ReturnRequest struct {
	LoanID   int64 `json:"loan_id"`
	ClientID int64 `json:"client_id"`
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	var req ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid return payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	l := &entity.Loan{ID: req.LoanID, ClientID: req.ClientID}
	returned, err := h.svc.Return(r.Context(), l)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, returned)
}

func (h *Handler) ListForClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := strconv.ParseInt(r.URL.Query().Get("client_id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client_id"})
		return
	}
	loans, err := h.svc.ListForClient(r.Context(), clientID)
	if err != nil {
		h.logger.Warnw("loan listing failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "loan listing failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, loans)
}

// writeError maps loan business errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound), errors.Is(err, ErrClientNotFound), errors.Is(err, ErrLoanNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNullLoan), errors.Is(err, ErrInvalidBookList), errors.Is(err, ErrInvalidBook),
		errors.Is(err, ErrInvalidReturnDate), errors.Is(err, ErrInvalidClient), errors.Is(err, ErrMaxBooksExceeded):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		h.logger.Warnw("loan operation failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "loan operation failed"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
