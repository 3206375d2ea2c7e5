package main

import (
    "context"
    "fmt"
    "os"

    "github.com/bilgisen/agcofeed/internal/cache"
    "github.com/bilgisen/agcofeed/internal/config"
    "github.com/bilgisen/agcofeed/internal/feed"
    "github.com/bilgisen/agcofeed/internal/logger"
    "github.com/bilgisen/agcofeed/internal/storage"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }

    if err := logger.Init(logger.Config{
        Level:  cfg.LogLevel,
        Output: cfg.LogFile,
        Pretty: cfg.LogPretty,
    }); err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }

    log := logger.Get()
    if err := run(cfg); err != nil {
        log.Error().Err(err).Msg("Feed run failed")
        os.Exit(1)
    }
}

func run(cfg *config.Config) error {
    log := logger.Get()

    ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
    defer cancel()

    processor, closeFn, err := newProcessor(ctx, cfg)
    if err != nil {
        return err
    }
    defer closeFn()

    log.Info().
        Str("strategy", cfg.Strategy).
        Str("category", cfg.CategoryName).
        Msg("Starting feed run")

    result, err := processor.Run(ctx)
    if err != nil {
        return err
    }

    log.Info().
        Int("items", result.Items).
        Str("path", result.OutputPath).
        Msg("Saved AGCO feed")
    return nil
}

// newProcessor wires source, storage, run lock and optional publisher from cfg.
func newProcessor(ctx context.Context, cfg *config.Config) (*feed.Processor, func(), error) {
    log := logger.Get()

    source, err := feed.NewSource(cfg)
    if err != nil {
        return nil, nil, err
    }

    store, err := storage.NewStorage(cfg.OutputPath)
    if err != nil {
        return nil, nil, err
    }

    locker, err := cache.NewLocker(cfg)
    if err != nil {
        return nil, nil, err
    }
    closeFn := func() {
        if err := locker.Close(); err != nil {
            log.Error().Err(err).Msg("Error closing run lock")
        }
    }

    var publisher feed.Publisher
    if cfg.PublishEnabled() {
        r2, err := storage.NewR2Publisher(ctx, cfg)
        if err != nil {
            closeFn()
            return nil, nil, err
        }
        publisher = r2
    }

    return feed.NewProcessor(cfg, source, store, locker, publisher), closeFn, nil
}
