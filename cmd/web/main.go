package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/bilgisen/agcofeed/internal/api"
    "github.com/bilgisen/agcofeed/internal/cache"
    "github.com/bilgisen/agcofeed/internal/config"
    "github.com/bilgisen/agcofeed/internal/feed"
    "github.com/bilgisen/agcofeed/internal/logger"
    "github.com/bilgisen/agcofeed/internal/middleware"
    "github.com/bilgisen/agcofeed/internal/storage"
    "github.com/gofiber/fiber/v2"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        panic(err)
    }

    if err := logger.Init(logger.Config{
        Level:  cfg.LogLevel,
        Output: cfg.LogFile,
        Pretty: cfg.LogPretty,
    }); err != nil {
        panic(err)
    }

    log := logger.Get()
    log.Info().Msg("Starting feed server...")

    source, err := feed.NewSource(cfg)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to initialize source")
    }

    store, err := storage.NewStorage(cfg.OutputPath)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to initialize storage")
    }

    locker, err := cache.NewLocker(cfg)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to initialize run lock")
    }
    defer func() {
        log.Info().Msg("Closing run lock...")
        if err := locker.Close(); err != nil {
            log.Error().Err(err).Msg("Error closing run lock")
        }
    }()

    var publisher feed.Publisher
    if cfg.PublishEnabled() {
        r2, err := storage.NewR2Publisher(context.Background(), cfg)
        if err != nil {
            log.Fatal().Err(err).Msg("Failed to initialize R2 publisher")
        }
        publisher = r2
    }

    processor := feed.NewProcessor(cfg, source, store, locker, publisher)
    builder := feed.NewBuilder(feed.ChannelFromConfig(cfg), cfg.FeedFormat)

    app := fiber.New(fiber.Config{
        ReadTimeout:  cfg.HTTPTimeout,
        WriteTimeout: cfg.RunTimeout,
        IdleTimeout:  120 * time.Second,
        ErrorHandler: middleware.ErrorHandler,
    })

    handlers := api.NewHandlers(store, processor, builder.ContentType(), cfg.RunTimeout)
    api.SetupRoutes(app, handlers, cfg.AdminAPIKey)

    go func() {
        log.Info().Str("port", cfg.Port).Msg("Starting server")
        if err := app.Listen(":" + cfg.Port); err != nil {
            log.Fatal().Err(err).Msg("Server error")
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
    <-quit

    log.Info().Msg("Shutting down server...")

    ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
    defer cancel()

    if err := app.ShutdownWithContext(ctx); err != nil {
        log.Error().Err(err).Msg("Server forced to shutdown")
    }

    log.Info().Msg("Server exited properly")
}
