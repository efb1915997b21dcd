package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	authrepo "github.com/pedrohonorio/biblioteca-virtual/internal/auth/repo"
	bookrepo "github.com/pedrohonorio/biblioteca-virtual/internal/book/repo"
	clientrepo "github.com/pedrohonorio/biblioteca-virtual/internal/client/repo"
	loanrepo "github.com/pedrohonorio/biblioteca-virtual/internal/loan/repo"
	"github.com/pedrohonorio/biblioteca-virtual/internal/router"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/database"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting biblioteca-virtual")

	// init db
	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	// wrap with sqlx for convenience in repos/services
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	// ensure schema; prefer migrations in production
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	for _, ensure := range []func(context.Context) error{
		clientrepo.NewClientRepo(sqlxDB).EnsureTable,
		bookrepo.NewBookRepo(sqlxDB).EnsureTable,
		loanrepo.NewLoanRepo(sqlxDB).EnsureTable,
		authrepo.NewSessionRepo(sqlxDB).EnsureTable,
	} {
		if err := ensure(setupCtx); err != nil {
			setupCancel()
			sugar.Fatalf("ensure schema: %v", err)
		}
	}
	setupCancel()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer := os.Getenv("TOKEN_ISSUER")
	if issuer == "" {
		issuer = "biblioteca-virtual"
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8420"
	}

	// mount http server
	handler, err := router.RegisterRoutes(sugar, sqlxDB, issuer)
	if err != nil {
		sugar.Fatalf("register routes: %v", err)
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	sugar.Infow("service is running", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	if err := sqlDB.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
