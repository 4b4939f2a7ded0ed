package cli

import (
	"fmt"
	"path/filepath"

	"github.com/berth-dev/docchat/internal/chatapi"
	"github.com/berth-dev/docchat/internal/config"
	"github.com/berth-dev/docchat/internal/log"
	"github.com/berth-dev/docchat/internal/storage"
)

// env holds the services every command needs.
type env struct {
	root   string
	cfg    *config.Config
	logger *log.Logger
	store  *storage.Store
	client *chatapi.Client
}

// openEnv loads config and opens the log, the store and the API client.
func openEnv() (*env, error) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logPath := cfg.Logging.File
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(root, logPath)
	}
	logger, err := log.NewLogger(logPath, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	return &env{
		root:   root,
		cfg:    cfg,
		logger: logger,
		store:  storage.Open(cfg.Storage, root, logger),
		client: chatapi.NewClient(cfg.API, chatapi.WithLogger(logger)),
	}, nil
}

// Close releases the store and flushes the log.
func (e *env) Close() {
	_ = e.store.Close()
	_ = e.logger.Close()
}
