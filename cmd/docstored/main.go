// Command docstored serves the document store and account RPCs used by the notes client.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/notekeeper/internal/auth"
	"github.com/mmynk/notekeeper/internal/config"
	"github.com/mmynk/notekeeper/internal/metrics"
	"github.com/mmynk/notekeeper/internal/middleware"
	"github.com/mmynk/notekeeper/internal/service"
	"github.com/mmynk/notekeeper/pkg/docapi"
	"github.com/mmynk/notekeeper/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("NOTES_CONFIG"))
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.close()

	revocations, closeRevocations, err := openRevocations(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeRevocations()

	m := metrics.New(true)
	jwtManager := auth.NewJWTManager(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store.users)
	limiter := middleware.NewRateLimiter(cfg.Server.LoginRate, cfg.Server.LoginBurst,
		docapi.AuthServiceLoginProcedure,
		docapi.AuthServiceRegisterProcedure,
	)

	common := []connect.Interceptor{
		middleware.MetricsInterceptor(m),
		middleware.LoggingInterceptor(nil),
	}

	mux := http.NewServeMux()

	// Register Connect services
	docPath, docHandler := docapi.NewDocumentServiceHandler(
		service.NewDocumentService(store.documents, slog.Default(), m),
		connect.WithInterceptors(append(common, middleware.RequireAuth(jwtManager, revocations))...),
	)
	mux.Handle(docPath, docHandler)

	authPath, authHandler := docapi.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, revocations, slog.Default(), m),
		connect.WithInterceptors(append(common, limiter.Interceptor(), middleware.OptionalAuth(jwtManager, revocations))...),
	)
	mux.Handle(authPath, authHandler)

	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	// Add logging and CORS middleware
	handler := middleware.HTTPLogging(nil, middleware.CORS(cfg.Server.CORSOrigin, mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.Server.Addr, "store", cfg.Store.Driver)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
