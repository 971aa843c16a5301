// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides which URL patterns need a logged-in user or an admin.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New(cfg, logger)
//	server.New creates:
//	  sqlite.DB ─────────────┬→ AuthService  → AuthHandler, UserHandler
//	  media.Store (local|cdn)├→ PhotoService → PhotoHandler
//	  TokenService, bcrypt ──┴→ AdminService → AdminHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/config"
	"github.com/sakif/datingapp/internal/handler"
	"github.com/sakif/datingapp/internal/media"
	"github.com/sakif/datingapp/internal/media/cloudinary"
	"github.com/sakif/datingapp/internal/media/local"
	"github.com/sakif/datingapp/internal/middleware"
	"github.com/sakif/datingapp/internal/model"
	sqliteRepo "github.com/sakif/datingapp/internal/repository/sqlite"
	"github.com/sakif/datingapp/internal/service"
)

// seedTimeout bounds the admin seeding done at startup.
const seedTimeout = 10 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown; tests that never call Start call Close instead.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService

	// localMedia is set when photos are stored on disk and served from /media.
	localMedia *local.Store
	mediaStore media.Store
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Open the database (sqlite.New runs migrations)
//  2. Pick the media store (local disk or Cloudinary)
//  3. Create the auth primitives (JWT, bcrypt)
//  4. Seed the admin account if ADMIN_USERNAME is set
//  5. Wire services → handlers → routes
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupMedia(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up media store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	s.tokens = tokens

	if err := s.setupRoutes(auth.NewPasswordService()); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupMedia selects the media store from config.
func (s *Server) setupMedia() error {
	switch s.config.MediaBackend {
	case config.MediaCloudinary:
		store, err := cloudinary.New(s.config.CloudinaryCloudName, s.config.CloudinaryAPIKey, s.config.CloudinaryAPISecret)
		if err != nil {
			return err
		}
		s.mediaStore = store
	default:
		store, err := local.New(s.config.MediaDir, s.config.MediaBaseURL)
		if err != nil {
			return err
		}
		s.localMedia = store
		s.mediaStore = store
	}
	s.logger.Info("media store ready", slog.String("backend", s.config.MediaBackend))
	return nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                                   → liveness + DB ping
// GET    /media/*                                  → locally stored photos (local backend only)
// GET    /auth/github/login                        → redirect to GitHub (if configured)
// GET    /auth/github/callback                     → OAuth callback (if configured)
// POST   /api/auth/register                        → create account
// POST   /api/auth/login                           → issue JWT
// POST   /api/auth/logout                          → clear JWT cookie
// GET    /api/me                                   → current user           [auth]
// GET    /api/users/{userId}                       → member profile         [auth]
// GET    /api/users/{userId}/photos                → list photos            [auth]
// POST   /api/users/{userId}/photos                → upload photo           [auth]
// GET    /api/users/{userId}/photos/{id}           → get photo              [auth]
// POST   /api/users/{userId}/photos/{id}/setMain   → set main photo         [auth]
// DELETE /api/users/{userId}/photos/{id}           → delete photo           [auth]
// GET    /api/admin/users-with-roles               → list users and roles   [admin]
// POST   /api/admin/edit-roles/{userId}            → replace a user's roles [admin]
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with its request ID
// 5. CORS: only when CORS_ORIGIN is set
func (s *Server) setupRoutes(passwords *auth.PasswordService) error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	if s.config.CORSOrigin != "" {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.config.CORSOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// === Services ===
	// Every service receives the DB twice: once as the Transactor, once as
	// the pool-bound repositories it reads from outside a transaction.
	users, photos := s.db.Users(), s.db.Photos()
	authService := service.NewAuthService(s.db, users, photos, s.tokens, passwords, s.logger)
	photoService := service.NewPhotoService(s.db, users, photos, s.mediaStore, s.config.MediaTimeout, s.logger)
	adminService := service.NewAdminService(s.db, users, s.logger)

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()
	if err := authService.SeedAdmin(ctx, s.config.AdminUsername, s.config.AdminPassword); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	// === Handlers ===
	var github handler.GitHubOAuth
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.config.CookieSecure, s.logger)
	userHandler := handler.NewUserHandler(authService, s.logger)
	photoHandler := handler.NewPhotoHandler(photoService, s.config.MaxUploadBytes, s.logger)
	adminHandler := handler.NewAdminHandler(adminService, s.logger)

	s.router.Get("/health", s.handleHealth)

	// === Local media ===
	// http.StripPrefix removes "/media/" before the file lookup, so
	// GET /media/abc.jpg → {MediaDir}/abc.jpg
	// A MEDIA_BASE_URL pointing at another host means something else serves the files.
	if s.localMedia != nil && strings.HasPrefix(s.config.MediaBaseURL, "/") {
		prefix := s.config.MediaBaseURL + "/"
		s.router.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.localMedia.Dir()))))
	}

	// === GitHub OAuth (browser redirects, not JSON) ===
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("GitHub login disabled: GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set")
	}

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.With(auth.OptionalAuth(s.tokens)).Post("/auth/logout", authHandler.HandleLogout)

		// Everything below needs a valid token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Get("/users/{userId}", userHandler.HandleGet)

			r.Route("/users/{userId}/photos", func(r chi.Router) {
				r.Get("/", photoHandler.HandleList)
				r.Post("/", photoHandler.HandleUpload)
				r.Get("/{id}", photoHandler.HandleGet)
				r.Post("/{id}/setMain", photoHandler.HandleSetMain)
				r.Delete("/{id}", photoHandler.HandleDelete)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(model.RoleAdmin))
				r.Get("/users-with-roles", adminHandler.HandleUsersWithRoles)
				r.Post("/edit-roles/{userId}", adminHandler.HandleEditRoles)
			})
		})
	})

	return nil
}

// handleHealth reports whether the server can reach its database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Handler returns the root HTTP handler. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// WriteTimeout leaves room for a full media store round trip, since an
// upload request waits on the store before it can answer.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.config.MediaTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
