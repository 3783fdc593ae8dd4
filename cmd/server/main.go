package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adube/placeshare/internal/auth"
	"github.com/adube/placeshare/internal/config"
	"github.com/adube/placeshare/internal/files"
	"github.com/adube/placeshare/internal/middleware"
	"github.com/adube/placeshare/internal/places"
	"github.com/adube/placeshare/internal/store"
	"github.com/adube/placeshare/internal/users"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio connect")
	}

	// ── Services and handlers ────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWTSecret, auth.TokenTTL)
	placeService := places.NewService(mongoStore, mongoStore, mongoStore, minioStore, log)

	userHandler := users.NewHandler(mongoStore, minioStore, tokens, log)
	placeHandler := places.NewHandler(placeService, minioStore, log)
	fileHandler := files.NewHandler(minioStore, log)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := middleware.RequireAuth(tokens, log)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/places", func(r chi.Router) {
		r.Get("/{id}", placeHandler.Get)
		r.Get("/user/{userId}", placeHandler.ListByUser)
		r.With(requireAuth).Post("/", placeHandler.Create)
		r.With(requireAuth).Patch("/{id}", placeHandler.Update)
		r.With(requireAuth).Delete("/{id}", placeHandler.Delete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.List)
		r.Post("/signup", userHandler.Signup)
		r.Post("/login", userHandler.Login)
	})

	r.Get("/files/{key}", fileHandler.Serve)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
