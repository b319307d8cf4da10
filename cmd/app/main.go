package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/manualrebuild/internal/client"
	cfgpkg "github.com/local/manualrebuild/internal/config"
	logpkg "github.com/local/manualrebuild/internal/logger"
	"github.com/local/manualrebuild/internal/metrics"
	"github.com/local/manualrebuild/internal/prompt"
	"github.com/local/manualrebuild/internal/reconstruct"
	"github.com/local/manualrebuild/internal/statuscheck"
	"github.com/local/manualrebuild/internal/storage"
	"github.com/local/manualrebuild/internal/store"
	web "github.com/local/manualrebuild/internal/web"
)

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Service:      "manualrebuild",
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	systemPrompt, err := prompt.Load(cfg.Provider.PromptFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Provider.PromptFile).Msg("failed to load prompt")
	}

	// Audit log (optional)
	var audit reconstruct.AuditLog
	var redisPing statuscheck.Pinger
	if cfg.Audit.RedisURL != "" {
		ra, err := store.NewRedisAudit(cfg.Audit.RedisURL, cfg.Audit.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis audit store")
		}
		defer ra.Close()
		audit = reconstruct.NewAuditAdapter(ra)
		redisPing = ra
	}

	// Page storage (optional)
	var s3c *storage.S3Client
	if cfg.Storage.Bucket != "" {
		s3c, err = storage.NewS3Client(context.Background(), cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init page storage")
		}
	}

	fwd := reconstruct.NewForwarder(reconstruct.Options{Config: cfg.Provider, Prompt: systemPrompt})
	mux := http.NewServeMux()
	reconstruct.NewHandler(reconstruct.Dependencies{
		Forwarder: fwd,
		Audit:     audit,
		MaxBodyMB: cfg.Server.MaxBodyMB,
	}).RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	sopts := statuscheck.Options{Redis: redisPing, Provider: cfg.Provider}
	wopts := web.Options{
		Username:     cfg.Web.Username,
		PasswordHash: cfg.Web.PasswordHash,
		Client:       client.New(client.Options{BaseURL: fmt.Sprintf("http://127.0.0.1:%s", cfg.Server.Port)}),
		MaxUploadMB:  cfg.Server.MaxBodyMB,
	}
	if s3c != nil {
		sopts.Storage = s3c
		wopts.Publisher = s3c
	}
	statuscheck.New(sopts).RegisterRoutes(mux)

	// Dashboard
	web.New(wopts).RegisterRoutes(mux)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}

	go func() {
		log.Info().Str("model", cfg.Provider.Model).Str("routing", cfg.Provider.Routing).Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
