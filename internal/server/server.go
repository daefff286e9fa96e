// Package server is the composition root: it opens the store, builds the
// services and handlers on top of it, mounts the routes and runs the HTTP
// server until a shutdown signal arrives.
//
// DEPENDENCY FLOW:
//
//	config.Config → repository.Store (sqlite or postgres)
//	              → service.*Service  (business rules)
//	              → handler.*Handler  (HTTP translation)
//	              → chi routes
//
// Handlers never touch the store and services never touch HTTP.
package server

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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/snapgram/internal/auth"
	"github.com/sakif/snapgram/internal/config"
	"github.com/sakif/snapgram/internal/handler"
	"github.com/sakif/snapgram/internal/media"
	"github.com/sakif/snapgram/internal/middleware"
	"github.com/sakif/snapgram/internal/repository"
	"github.com/sakif/snapgram/internal/repository/postgres"
	sqliteRepo "github.com/sakif/snapgram/internal/repository/sqlite"
	"github.com/sakif/snapgram/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server owns the router and the store. The store is closed when Start
// returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// OpenStore opens the backend selected by cfg.DBDriver.
func OpenStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DatabaseURL,
			MaxConns: int32(cfg.DBMaxConns),
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("server: unknown database driver %q", cfg.DBDriver)
	}
}

// New opens the configured store and wires every route on top of it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := newServer(cfg, store, auth.NewPasswordService(), logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

func newServer(cfg config.Config, store repository.Store, passwords *auth.PasswordService, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(passwords); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts middleware and routes.
//
// ROUTES:
//
//	GET    /                                  health
//	POST   /api/auth/signup | login | logout
//	GET    /api/auth/me
//	GET    /auth/github/login | callback      (GitHub configured)
//	GET    /api/feed
//	POST   /api/posts    GET|DELETE /api/posts/{id}    GET /api/posts/user/{userID}
//	POST|DELETE /api/likes/{postID}
//	POST|GET /api/comments/{id}    DELETE /api/comments/{id}
//	GET    /api/users/search/query
//	PATCH  /api/users/me/profile-picture
//	GET    /api/users/{userID} | followers | following
//	POST|DELETE /api/users/{userID}/follow
//	POST   /api/media                         (S3 configured)
//
// Middleware order: RequestID must precede Logger so each line carries the
// id, and Recoverer sits inside Logger so a panic is logged as a 500.
func (s *Server) setupRoutes(passwords *auth.PasswordService) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}

	authService := service.NewAuthService(s.store, tokens, passwords, s.logger)
	postService := service.NewPostService(s.store, s.logger)
	engagementService := service.NewEngagementService(s.store, s.logger)
	userService := service.NewUserService(s.store, s.store, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	postHandler := handler.NewPostHandler(postService)
	engagementHandler := handler.NewEngagementHandler(engagementService)
	userHandler := handler.NewUserHandler(userService)

	var mediaHandler *handler.MediaHandler
	if s.config.MediaEnabled() {
		store, err := media.NewS3Store(media.S3Config{
			Bucket:    s.config.S3Bucket,
			Region:    s.config.S3Region,
			Endpoint:  s.config.S3Endpoint,
			PublicURL: s.config.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("creating media store: %w", err)
		}
		uploader := media.NewUploader(store, s.config.MediaMaxBytes, s.logger)
		mediaHandler = handler.NewMediaHandler(uploader, s.logger)
	}

	s.router.Get("/", handler.HandleHealth)

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/me", authHandler.HandleMe)

			r.Get("/feed", postHandler.HandleFeed)

			r.Post("/posts", postHandler.HandleCreate)
			r.Get("/posts/user/{userID}", postHandler.HandleListByUser)
			r.Get("/posts/{id}", postHandler.HandleGet)
			r.Delete("/posts/{id}", postHandler.HandleDelete)

			r.Post("/likes/{postID}", engagementHandler.HandleLike)
			r.Delete("/likes/{postID}", engagementHandler.HandleUnlike)

			r.Post("/comments/{id}", engagementHandler.HandleAddComment)
			r.Get("/comments/{id}", engagementHandler.HandleListComments)
			r.Delete("/comments/{id}", engagementHandler.HandleDeleteComment)

			// Static segments first: chi prefers them over {userID} anyway,
			// but the order documents the intent.
			r.Get("/users/search/query", userHandler.HandleSearch)
			r.Patch("/users/me/profile-picture", userHandler.HandleUpdateProfilePicture)
			r.Get("/users/{userID}", userHandler.HandleProfile)
			r.Get("/users/{userID}/followers", userHandler.HandleFollowers)
			r.Get("/users/{userID}/following", userHandler.HandleFollowing)
			r.Post("/users/{userID}/follow", userHandler.HandleFollow)
			r.Delete("/users/{userID}/follow", userHandler.HandleUnfollow)

			if mediaHandler != nil {
				r.Post("/media", mediaHandler.HandleUpload)
			}
		})
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to shutdownTimeout and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DBDriver),
			slog.Bool("github", s.config.GitHubEnabled()),
			slog.Bool("media", s.config.MediaEnabled()),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
