package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ipurpose/api/internal/app"
	"ipurpose/api/internal/config"
	"ipurpose/api/internal/email"
	"ipurpose/api/internal/entitlement"
	"ipurpose/api/internal/export"
	"ipurpose/api/internal/logger"
	"ipurpose/api/internal/revisions"
	"ipurpose/api/internal/search"
	"ipurpose/api/internal/session"
	"ipurpose/api/internal/store"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, Prefix: "ipurpose-api"}); err != nil {
		logger.Fatal("logger init failed", "err", err)
	}
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", "err", err)
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("migrations failed", "err", err)
	}
	for _, version := range applied {
		logger.Info("applied migration", "version", version)
	}

	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		logger.Fatal("failed to create revisions dir", "dir", cfg.RevisionsDir, "err", err)
	}

	dataStore := store.NewPostgresStore(db)
	if len(os.Args) > 1 && os.Args[1] == "set-tier" {
		if err := setTier(ctx, dataStore, os.Args[2:]); err != nil {
			logger.Fatal("set-tier failed", "err", err)
		}
		return
	}
	revisionService := revisions.New(cfg.RevisionsDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)

	var service *app.Service
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for refresh sessions")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", "err", err)
		}
		defer redisStore.Close()
		service = app.NewWithSessionStore(cfg, dataStore, redisStore, revisionService, searchService)
	} else {
		logger.Info("using postgres for refresh sessions")
		service = app.New(cfg, dataStore, revisionService, searchService)
	}

	service.SetMailer(email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}))

	if strings.TrimSpace(cfg.ExportS3Endpoint) != "" {
		archive, err := export.NewArchive(export.ArchiveConfig{
			Endpoint:  cfg.ExportS3Endpoint,
			AccessKey: cfg.ExportS3AccessKey,
			SecretKey: cfg.ExportS3SecretKey,
			Bucket:    cfg.ExportS3Bucket,
			UseSSL:    cfg.ExportS3UseSSL,
			LinkTTL:   cfg.ExportLinkTTL,
		})
		if err != nil {
			logger.Warn("export archive disabled", "err", err)
		} else {
			bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := archive.EnsureBucket(bucketCtx)
			cancel()
			if err != nil {
				logger.Warn("export archive disabled", "bucket", cfg.ExportS3Bucket, "err", err)
			} else {
				service.SetArchive(archive)
			}
		}
	}

	go searchService.ReindexAllFromPG(ctx)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("iPurpose API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}

// setTier is the operator hook for billing: api set-tier <email> <tier>.
func setTier(ctx context.Context, dataStore *store.PostgresStore, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: api set-tier <email> <tier>")
	}
	tier := strings.ToLower(strings.TrimSpace(args[1]))
	if string(entitlement.Normalize(tier)) != tier {
		return fmt.Errorf("unknown tier %q", args[1])
	}
	user, err := dataStore.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(args[0])))
	if err != nil {
		return fmt.Errorf("lookup %s: %w", args[0], err)
	}
	if err := dataStore.UpdateUserTier(ctx, user.ID, tier); err != nil {
		return err
	}
	logger.Info("tier updated", "user", user.ID, "tier", tier)
	return nil
}
