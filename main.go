package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nijaru/yt-summary/command"
	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/discord"
	"github.com/nijaru/yt-summary/dispatch"
	"github.com/nijaru/yt-summary/handlers"
	"github.com/nijaru/yt-summary/logger"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/nijaru/yt-summary/repository"
	"github.com/nijaru/yt-summary/repository/sqlite"
	"github.com/nijaru/yt-summary/storage"
	"github.com/nijaru/yt-summary/summary"
	"github.com/nijaru/yt-summary/transcript"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logr, logCloser, err := logger.New(logger.Options{
		Dir:   cfg.LogDir,
		Level: cfg.LogLevel,
		Debug: cfg.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logCloser.Close()
	logrus.SetOutput(logr.Out)
	logrus.SetFormatter(logr.Formatter)
	logrus.SetLevel(logr.GetLevel())

	ctx := context.Background()

	// Optional summary history
	var (
		history repository.SummaryRepository
		db      *sql.DB
	)
	if cfg.Database.Enabled {
		dbConfig := sqlite.DefaultDBConfig()
		dbConfig.MaxConnections = cfg.Database.MaxConnections
		dbConfig.MaxIdleConnections = cfg.Database.MaxIdleConnections
		dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime

		db, err = sqlite.InitDB(cfg.Database.Path, dbConfig)
		if err != nil {
			logr.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()

		repo, err := sqlite.NewRepository(ctx, db, dbConfig)
		if err != nil {
			logr.WithError(err).Fatal("Failed to initialize repository")
		}
		defer repo.Close()
		history = repo
	}

	// Optional summary archive
	var archive storage.Archiver
	if cfg.Storage.Enabled() {
		spaces, err := storage.NewSpacesClient(ctx, storage.SpacesConfig{
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			Bucket:    cfg.Storage.Bucket,
		})
		if err != nil {
			logr.WithError(err).Fatal("Failed to initialize summary archive")
		}
		archive = spaces
	}

	// Transcript and summary services
	retry := transcript.DefaultRetryConfig
	retry.MaxRetries = cfg.Transcript.MaxRetries
	fetcher := transcript.NewFetcher(transcript.Config{
		Languages: cfg.Transcript.Languages,
		Timeout:   cfg.Transcript.FetchTimeout,
		Retry:     retry,
	})
	titles := transcript.NewMetadataClient(cfg.Transcript.APIKey, "", nil)

	completer, err := summary.NewCompleter(cfg.Summary)
	if err != nil {
		logr.WithError(err).Fatal("Failed to initialize summary provider")
	}
	generator := summary.NewService(completer, summary.Config{Timeout: cfg.Summary.Timeout})

	// Discord session and commands
	router := command.NewRouter(cfg.Discord.CommandPrefix)
	bot, err := discord.New(cfg.Discord.Token, router, logr)
	if err != nil {
		logr.WithError(err).Fatal("Failed to initialize Discord session")
	}
	dispatcher := dispatch.New(bot)

	chain := commandChain(cfg, logr)
	router.Handle(handlers.SummarizeSpec, middleware.Chain(handlers.NewSummarizeHandler(handlers.SummarizeDeps{
		Fetcher:    fetcher,
		Generator:  generator,
		Dispatcher: dispatcher,
		Titles:     titles,
		History:    history,
		Archive:    archive,
		Prefix:     cfg.Discord.CommandPrefix,
		Provider:   completer.Name(),
	}), chain...))
	router.Handle(handlers.HistorySpec, middleware.Chain(handlers.NewHistoryHandler(history, dispatcher), chain...))
	router.Handle(handlers.HelpSpec, middleware.Chain(handlers.NewHelpHandler(router, dispatcher), chain...))

	if err := bot.Open(); err != nil {
		logr.WithError(err).Fatal("Failed to connect to Discord")
	}

	logr.WithFields(logrus.Fields{
		"version":  cfg.Version,
		"provider": completer.Name(),
		"history":  history != nil,
		"archive":  archive != nil,
	}).Info("Bot is running")

	// Graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	<-shutdownChan
	logr.Info("Shutting down bot...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := bot.Shutdown(shutdownCtx); err != nil {
		logr.WithError(err).Error("Bot shutdown error")
	}
}

func commandChain(cfg *config.Config, logr *logrus.Logger) []middleware.Middleware {
	chain := []middleware.Middleware{
		middleware.Recovery(logr),
		middleware.RequestID(),
		middleware.Logging(logr),
	}
	if cfg.Discord.RestrictToChannel {
		chain = append(chain, middleware.ChannelFilter(cfg.ChannelIDString()))
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
		chain = append(chain, limiter.Middleware)
	}
	return append(chain, middleware.Timeout(cfg.InvocationTimeout))
}
