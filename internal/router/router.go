package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/pedrohonorio/biblioteca-virtual/internal/auth"
	authrepo "github.com/pedrohonorio/biblioteca-virtual/internal/auth/repo"
	"github.com/pedrohonorio/biblioteca-virtual/internal/book"
	bookrepo "github.com/pedrohonorio/biblioteca-virtual/internal/book/repo"
	"github.com/pedrohonorio/biblioteca-virtual/internal/client"
	"github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
	clientrepo "github.com/pedrohonorio/biblioteca-virtual/internal/client/repo"
	"github.com/pedrohonorio/biblioteca-virtual/internal/loan"
	loanrepo "github.com/pedrohonorio/biblioteca-virtual/internal/loan/repo"
	"github.com/pedrohonorio/biblioteca-virtual/internal/notify"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/database"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level,
// tagging each with a snowflake request ID.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := utilities.NewRequestID()
			w.Header().Set("X-Request-Id", reqID)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP
// security headers. It is intentionally simple and conservative so it works
// with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes wires repositories, services and handlers onto a standard
// library ServeMux. issuer names this deployment in issued tokens.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, issuer string) (http.Handler, error) {
	books := bookrepo.NewBookRepo(db)
	clients := clientrepo.NewClientRepo(db)
	loans := loanrepo.NewLoanRepo(db)
	sessions := authrepo.NewSessionRepo(db)
	tx := database.NewRunner(db)

	mailer := notify.MailerFromEnv(logger)
	notifier := notify.NewLoanNotifier(mailer, clients, books, logger)

	hasher := client.BcryptHasher{Cost: 12}
	clientSvc := client.NewService(clients, hasher, mailer, logger)
	bookSvc := book.NewService(books, loans, logger)
	loanSvc := loan.NewService(loan.NewValidator(books, clients, loans), books, loans, tx, notifier, logger)
	authSvc, err := auth.NewService(issuer, clients, sessions, hasher)
	if err != nil {
		return nil, err
	}

	clientHandler := client.NewHandler(clientSvc, logger)
	bookHandler := book.NewHandler(bookSvc, logger)
	loanHandler := loan.NewHandler(loanSvc, logger)
	authHandler := auth.NewHandler(authSvc, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /biblioteca/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth
	mux.HandleFunc("POST /biblioteca/auth/login", authHandler.Login)
	mux.HandleFunc("POST /biblioteca/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /biblioteca/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /biblioteca/auth/jwks.json", authHandler.JWKS)

	// clients
	mux.HandleFunc("POST /biblioteca/clients", clientHandler.Register)
	mux.HandleFunc("POST /biblioteca/clients/forgot-password", clientHandler.ForgotPassword)
	mux.HandleFunc("POST /biblioteca/clients/change-password", clientHandler.ChangePassword)

	// catalog; mutations are admin only
	mux.HandleFunc("GET /biblioteca/books", bookHandler.List)
	mux.HandleFunc("GET /biblioteca/books/{id}", bookHandler.Get)
	mux.HandleFunc("POST /biblioteca/books", authHandler.Require(string(entity.ProfileAdmin), bookHandler.Create))
	mux.HandleFunc("DELETE /biblioteca/books/{id}", authHandler.Require(string(entity.ProfileAdmin), bookHandler.Remove))

	// loans
	mux.HandleFunc("POST /biblioteca/loans", authHandler.Require("", loanHandler.Borrow))
	mux.HandleFunc("POST /biblioteca/loans/return", authHandler.Require("", loanHandler.Return))
	mux.HandleFunc("GET /biblioteca/loans", authHandler.Require("", loanHandler.ListForClient))

	// wrap with security headers middleware then logging middleware
	handler := LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
	return handler, nil
}
