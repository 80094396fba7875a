package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"github.com/gorilla/mux"

	"github.com/leetdraw/leetdraw/internal/auth"
	"github.com/leetdraw/leetdraw/internal/bridge"
	"github.com/leetdraw/leetdraw/internal/config"
	"github.com/leetdraw/leetdraw/internal/db"
	"github.com/leetdraw/leetdraw/internal/drafts"
	"github.com/leetdraw/leetdraw/internal/drawing"
	"github.com/leetdraw/leetdraw/internal/drive"
	mw "github.com/leetdraw/leetdraw/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Token store: Postgres when configured, memory otherwise
	var tokens auth.TokenStore
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		tokens = db.NewTokenStore(pool)
	} else {
		slog.Warn("DATABASE_URL not set, credentials are kept in memory")
		tokens = auth.NewMemoryStore()
	}

	// The bridge mux is filled in once the services exist, since the hub
	// is itself the interactive authorizer.
	methods := bridge.NewMux(drawing.ErrorCode)
	hub := bridge.NewHub(methods,
		bridge.WithOriginPatterns(cfg.OriginPatterns()...),
		bridge.WithLogger(logger.With("component", "bridge")),
	)

	authService := auth.NewService(tokens, cfg.SessionSecret,
		auth.WithAuthorizer(hub),
		auth.WithRevokeURL(cfg.OAuthRevokeURL),
		auth.WithTokenInfoURL(cfg.OAuthTokenInfoURL),
		auth.WithClientID(cfg.OAuthClientID),
	)
	authHandler := auth.NewHandler(authService)

	store := drafts.New(authService,
		drafts.WithFolderName(cfg.DraftsFolder),
		drafts.WithAuthRetries(cfg.AuthRetries),
		drafts.WithDriveOptions(
			drive.WithBaseURL(cfg.DriveBaseURL),
			drive.WithUploadURL(cfg.DriveUploadURL),
		),
		drafts.WithLogger(logger.With("component", "drafts")),
	)

	drawingService := drawing.NewService(store,
		drawing.WithTimeout(cfg.RequestTimeout),
		drawing.WithPadding(cfg.BoundsPadding),
	)
	drawingHandler := drawing.NewHandler(drawingService)

	bridge.RegisterMethods(methods, authService, drawingService)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","extensions":%d}`, hub.Count())
	}).Methods("GET")

	// Auth routes (public)
	r.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/status", authHandler.Status).Methods("GET", "OPTIONS")
	r.Handle("/auth/signout", authService.SessionMiddleware(http.HandlerFunc(authHandler.SignOut))).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.SessionMiddleware)

	api.HandleFunc("/problem", drawingHandler.Problem).Methods("GET", "OPTIONS")
	api.HandleFunc("/busy", drawingHandler.Busy).Methods("GET", "OPTIONS")
	api.HandleFunc("/engine", drawingHandler.EngineConfig).Methods("GET", "OPTIONS")
	api.HandleFunc("/problems/{problemId}/drawing", drawingHandler.Load).Methods("GET", "OPTIONS")
	api.HandleFunc("/problems/{problemId}/drawing", drawingHandler.Save).Methods("PUT")
	api.HandleFunc("/problems/{problemId}/preview.png", drawingHandler.Preview).Methods("GET", "OPTIONS")

	// Extension bridge, session required
	r.Handle("/ws", authService.SessionMiddleware(hub))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server", "busy", len(drawingService.Busy()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "folder", cfg.DraftsFolder)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
