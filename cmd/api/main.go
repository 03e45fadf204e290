package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/palitan-tayo-api/internal/assets"
	"github.com/palitan-tayo-api/internal/config"
	"github.com/palitan-tayo-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/palitan-tayo-api/internal/infrastructure/jwt"
	"github.com/palitan-tayo-api/internal/infrastructure/memory"
	"github.com/palitan-tayo-api/internal/infrastructure/postgres"
	redisinfra "github.com/palitan-tayo-api/internal/infrastructure/redis"
	s3infra "github.com/palitan-tayo-api/internal/infrastructure/s3"
	"github.com/palitan-tayo-api/internal/infrastructure/smtp"
	"github.com/palitan-tayo-api/internal/infrastructure/sns"
	transporthttp "github.com/palitan-tayo-api/internal/transport/http"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	setupLogger(cfg)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.Production() {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

func run(ctx context.Context, cfg *config.Config) error {
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				slog.Warn("close failed", "err", err)
			}
		}
	}()

	deps := &transporthttp.Deps{DefaultImage: assets.DefaultProfile}

	if cfg.UserStore == config.StoreDynamo || cfg.OTPStore == config.StoreDynamo {
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		// Creates tables and the TTL attribute if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg)
		if cfg.UserStore == config.StoreDynamo {
			deps.Users = dynamo.NewUserRepo(client, cfg.DynamoTables.Users)
		}
		if cfg.OTPStore == config.StoreDynamo {
			deps.Registrations = dynamo.NewPendingRepo(client, cfg.DynamoTables.Pending, "registration", cfg.OTPTTL, cfg.OTPRetention)
			deps.Resets = dynamo.NewPendingRepo(client, cfg.DynamoTables.Pending, "password_reset", cfg.OTPTTL, cfg.OTPRetention)
		}
	}

	switch cfg.UserStore {
	case config.StoreDynamo:
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		closers = append(closers, db)
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		deps.Users = postgres.NewUserRepo(db)
	default:
		return fmt.Errorf("unknown USER_STORE %q", cfg.UserStore)
	}

	switch cfg.OTPStore {
	case config.StoreDynamo:
	case config.StoreRedis:
		client := redisinfra.NewClient(cfg)
		closers = append(closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		deps.Registrations = redisinfra.NewPendingStore(client, "registration", cfg.OTPTTL, cfg.OTPRetention)
		deps.Resets = redisinfra.NewPendingStore(client, "password_reset", cfg.OTPTTL, cfg.OTPRetention)
	case config.StoreMemory:
		slog.Warn("OTP store is process-local; codes are lost on restart and not shared between instances")
		registrations := memory.NewPendingStore(cfg.OTPTTL, cfg.OTPRetention)
		resets := memory.NewPendingStore(cfg.OTPTTL, cfg.OTPRetention)
		go registrations.Run(ctx, time.Minute)
		go resets.Run(ctx, time.Minute)
		deps.Registrations, deps.Resets = registrations, resets
	default:
		return fmt.Errorf("unknown OTP_STORE %q", cfg.OTPStore)
	}

	// Optional integrations are only assigned when available so the
	// interfaces in deps stay nil otherwise.
	if p, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL); err == nil {
		deps.Tokens = p
	} else {
		slog.Warn("JWT provider not available; sign-in is disabled", "err", err)
	}

	if client, err := s3infra.NewClient(ctx, cfg); err == nil {
		deps.Images = s3infra.NewStore(client, cfg.S3BucketName, cfg.S3PublicBaseURL)
	} else {
		slog.Warn("S3 not available; accounts are created without a profile image", "err", err)
	}

	if sender, err := sns.NewSender(ctx, cfg); err == nil {
		deps.SMS = sender
	} else {
		slog.Warn("SNS sender not available", "err", err)
	}

	deps.Mailer = smtp.NewMailer(cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "user_store", cfg.UserStore, "otp_store", cfg.OTPStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
