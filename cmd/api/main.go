//	@title			GCS Files API
//	@version		1.0
//	@description	Stores uploaded files in Google Cloud Storage and serves their public URLs.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/gcsfiles/service/internal/adapter"
	"github.com/gcsfiles/service/internal/config"
	"github.com/gcsfiles/service/internal/db"
	"github.com/gcsfiles/service/internal/files"
	"github.com/gcsfiles/service/internal/logging"
	"github.com/gcsfiles/service/internal/metrics"
	appMiddleware "github.com/gcsfiles/service/internal/middleware"
	"github.com/gcsfiles/service/internal/naming"
	"github.com/gcsfiles/service/internal/storage"

	_ "github.com/gcsfiles/service/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", zap.Error(err))
	}

	logFormat := cfg.LogFormat
	if !cfg.IsProduction() {
		logFormat = "console"
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: logFormat}); err != nil {
		logging.Fatal("logger init failed", zap.Error(err))
	}
	defer logging.Sync() //nolint:errcheck

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logging.Fatal("database migration failed", zap.Error(err))
	}

	provider, err := storage.NewProvider(ctx, storage.ProviderConfig{
		Driver: cfg.StorageDriver,
		GCS: storage.GCSConfig{
			ProjectID:       cfg.GCloudProjectID,
			CredentialsFile: cfg.GCloudCredentialsFile,
			Endpoint:        cfg.GCloudEndpoint,
		},
		S3: storage.S3Config{
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePathStyle,
		},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			UseSSL:    cfg.StorageUseSSL,
		},
	})
	if err != nil {
		logging.Fatal("object storage init failed", zap.Error(err))
	}
	defer provider.Close()

	if ensurer, ok := provider.(storage.BucketEnsurer); ok && !cfg.IsProduction() {
		if err := ensurer.EnsureBucket(ctx, cfg.GCloudBucket); err != nil {
			logging.Warn("bucket check failed", zap.String("bucket", cfg.GCloudBucket), zap.Error(err))
		}
	}

	strategy, err := naming.Lookup(cfg.FilenameStrategy)
	if err != nil {
		logging.Fatal("invalid filename strategy", zap.Error(err))
	}

	objectStore, err := adapter.New(adapter.Options{
		ProjectID:        cfg.GCloudProjectID,
		Bucket:           cfg.GCloudBucket,
		Path:             cfg.GCloudPath,
		GenerateFilename: adapter.FromStrategy(strategy),
		PublicHost:       cfg.GCloudPublicHost,
		MaxAttempts:      cfg.UploadMaxAttempts,
		Schema:           &adapter.Schema{Filename: true, Bucket: true, Path: true, Etag: true},
	}, provider)
	if err != nil {
		logging.Fatal("storage adapter init failed", zap.Error(err))
	}

	// Wire dependencies: repository → service → handler
	fileRepo := files.NewRepository(pool)
	fileSvc := files.NewService(fileRepo, objectStore, "")
	fileHandler := files.NewHandler(fileSvc, cfg.UploadMaxBytes)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1/files", func(r chi.Router) {
		fileHandler.Routes(r, appMiddleware.RequireAuth(cfg.JWTSecret))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logging.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.String("driver", provider.Name()),
			zap.String("bucket", objectStore.Options().Bucket))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logging.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("forced shutdown", zap.Error(err))
	}

	logging.Info("server stopped")
}
