package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/sydlexius/driftwave/internal/api"
	"github.com/sydlexius/driftwave/internal/config"
	"github.com/sydlexius/driftwave/internal/database"
	"github.com/sydlexius/driftwave/internal/encryption"
	"github.com/sydlexius/driftwave/internal/event"
	"github.com/sydlexius/driftwave/internal/library"
	"github.com/sydlexius/driftwave/internal/logging"
	"github.com/sydlexius/driftwave/internal/playlist"
	"github.com/sydlexius/driftwave/internal/provider"
	"github.com/sydlexius/driftwave/internal/provider/cyanite"
	"github.com/sydlexius/driftwave/internal/provider/lastfm"
	"github.com/sydlexius/driftwave/internal/run"
	"github.com/sydlexius/driftwave/internal/version"
)

func main() {
	// Handle subcommands before starting the server
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "set-api-key":
			if err := setAPIKey(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "reset-keys":
			if err := resetKeys(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if path := os.Getenv("DW_CONFIG_PATH"); path != "" {
		return path
	}
	return "/data/config.yaml"
}

func serve() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser := logging.New(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	if logCloser != nil {
		defer logCloser.Close() //nolint:errcheck
	}
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	encKey, err := resolveEncryptionKey(cfg, logger)
	if err != nil {
		return fmt.Errorf("resolving encryption key: %w", err)
	}
	encryptor, _, err := encryption.New(encKey)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	// Provider infrastructure
	rateLimiters := provider.NewRateLimiterMap()
	providerSettings := provider.NewSettingsService(db, encryptor)
	cache := provider.NewCache()

	similarity := lastfm.New(rateLimiters, providerSettings, cache, logger)
	contextProvider := cyanite.New(rateLimiters, providerSettings, cache, logger)

	// The bus exists before anything that publishes to it.
	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	// Library: store, index, scanner, watcher
	store := library.NewStore(db)
	index := library.NewIndex()
	scanner := library.NewScanner(store, index, eventBus, logger, cfg.Music.LibraryPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := index.Load(ctx, store); err != nil {
		logger.Warn("loading library index", "error", err)
	}
	// Startup rescan picks up files changed while the daemon was down.
	go func() {
		if _, err := scanner.Scan(ctx); err != nil {
			logger.Warn("startup library scan", "error", err)
		}
	}()

	if cfg.Music.Watch {
		watcher := library.NewWatcher(scanner, logger, cfg.Music.LibraryPath)
		go watcher.Start(ctx)
	}

	// Generation pipeline
	playlists := playlist.NewStore(db)
	queue := playlist.NewQueue(db)
	selection := run.NewSelection()
	orchestrator := run.NewOrchestrator(similarity, contextProvider, library.NewMatcher(index),
		playlists, queue, selection, eventBus, logger)

	if cfg.AutoQueue.Enabled {
		autoQueue := run.NewAutoQueue(orchestrator, queue, eventBus, logger,
			cfg.Generator, cfg.AutoQueue.LowWater)
		autoQueue.Start()
		defer autoQueue.Stop()
	}

	logger.Info("starting driftwave",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	router := api.NewRouter(api.RouterDeps{
		Orchestrator:     orchestrator,
		Selection:        selection,
		Generator:        cfg.Generator,
		Library:          store,
		Scanner:          scanner,
		Index:            index,
		Queue:            queue,
		Cache:            cache,
		ProviderSettings: providerSettings,
		EventBus:         eventBus,
		Logger:           logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// resolveEncryptionKey determines the encryption key to use.
// Priority: config/env > /data/encryption.key file > generate new.
func resolveEncryptionKey(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.Encryption.Key != "" {
		return cfg.Encryption.Key, nil
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	keyFile := filepath.Join(dataDir, "encryption.key")

	data, err := os.ReadFile(keyFile) //nolint:gosec // G304: path derived from trusted config
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key != "" {
			logger.Debug("loaded encryption key from file", slog.String("path", keyFile))
			return key, nil
		}
	}

	_, key, err := encryption.New("")
	if err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		logger.Warn("could not create data directory for encryption key",
			slog.String("path", dataDir), slog.Any("error", err))
		return key, nil
	}
	if err := os.WriteFile(keyFile, []byte(key+"\n"), 0o600); err != nil {
		logger.Warn("could not save encryption key to file",
			slog.String("path", keyFile), slog.Any("error", err))
	} else {
		logger.Warn("generated new encryption key -- back up this file",
			slog.String("path", keyFile))
	}

	return key, nil
}

// setAPIKey stores a provider API key without echoing it to the terminal.
// Usage: driftwave set-api-key <lastfm|cyanite>
func setAPIKey(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: driftwave set-api-key <provider>")
	}
	name := provider.Name(args[0])
	known := false
	for _, n := range provider.AllNames() {
		if name == n {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown provider %q", args[0])
	}

	settings, db, err := openSettings()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	fmt.Printf("API key for %s: ", name.DisplayName())
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading API key: %w", err)
	}
	apiKey := strings.TrimSpace(string(keyBytes))
	if apiKey == "" {
		return fmt.Errorf("API key must not be empty")
	}

	if err := settings.SetAPIKey(context.Background(), name, apiKey); err != nil {
		return err
	}
	fmt.Printf("Stored API key for %s.\n", name.DisplayName())
	return nil
}

// resetKeys wipes all stored provider API keys. Offline recovery path for
// a lost encryption key.
func resetKeys() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if _, err := db.ExecContext(context.Background(),
		"DELETE FROM settings WHERE key LIKE 'provider.%.api_key'"); err != nil {
		return fmt.Errorf("clearing provider API keys: %w", err)
	}

	fmt.Println("Provider API keys cleared. Set new keys with: driftwave set-api-key <provider>")
	return nil
}

func openSettings() (*provider.SettingsService, *sql.DB, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	encKey, err := resolveEncryptionKey(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving encryption key: %w", err)
	}
	encryptor, _, err := encryption.New(encKey)
	if err != nil {
		return nil, nil, fmt.Errorf("creating encryptor: %w", err)
	}
	return provider.NewSettingsService(db, encryptor), db, nil
}
