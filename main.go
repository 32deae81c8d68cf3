package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"examgate/internal/audit"
	"examgate/internal/auth"
	"examgate/internal/config"
	"examgate/internal/logging"
	"examgate/internal/menu"
	"examgate/internal/store"
	"examgate/internal/submit"
	"examgate/internal/validate"
	"examgate/internal/vault"
	"examgate/internal/watcher"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logging. The menu owns stdout, so application logs go to
	// the debug file with WARN and ERROR mirrored to stderr.
	var logOutput io.Writer = os.Stderr
	if cfg.Logging.DebugEnabled {
		fileWriter, err := logging.NewFileWriter(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer fileWriter.Close()
		logOutput = logging.NewMultiWriter(os.Stderr, fileWriter, true)
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.NewLogger("main", level, logOutput)
	logger.Info("Starting ExamGate v%s...", version)

	// Initialize store with migrations
	st, err := store.NewStore(cfg.Database)
	if err != nil {
		logger.Error("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("Database initialized at %s", cfg.Database)

	// Initialize the managed vault directory
	fileVault, err := vault.New(cfg.VaultDir)
	if err != nil {
		logger.Error("Failed to initialize vault: %v", err)
		os.Exit(1)
	}
	logger.Info("Vault directory: %s", fileVault.Dir())

	// Open the two append-only audit trails
	submissionTrail, err := audit.NewTrail(cfg.Audit.SubmissionLog)
	if err != nil {
		logger.Error("Failed to open submission audit trail: %v", err)
		os.Exit(1)
	}
	defer submissionTrail.Close()

	loginTrail, err := audit.NewTrail(cfg.Audit.LoginLog)
	if err != nil {
		logger.Error("Failed to open login audit trail: %v", err)
		os.Exit(1)
	}
	defer loginTrail.Close()
	logger.Info("Audit trails: %s, %s", submissionTrail.Path(), loginTrail.Path())

	// Initialize services with adapters
	rules := &validate.Rules{
		MaxFileSize:       cfg.MaxFileSizeBytes(),
		AllowedExtensions: cfg.Submission.AllowedExtensions,
	}

	authService := auth.NewService(
		&authStoreAdapter{store: st},
		loginTrail,
		logging.NewLogger("auth", level, logOutput),
		cfg.Auth.LockoutThreshold,
		cfg.Auth.LockoutDurationMinutes,
	)
	submitService := submit.NewService(
		&submitStoreAdapter{store: st},
		fileVault,
		submissionTrail,
		rules,
		logging.NewLogger("submit", level, logOutput),
	)
	logger.Info("Services initialized (lockout: %d attempts, %s)",
		cfg.Auth.LockoutThreshold, cfg.LockoutDuration())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the inbox watcher when enabled
	if cfg.Watcher.Enabled {
		w, err := watcher.NewWatcher(
			&watcherSubmitter{service: submitService},
			cfg.Watcher.Inbox,
			logging.NewLogger("watcher", level, logOutput),
		)
		if err != nil {
			logger.Error("Failed to initialize inbox watcher: %v", err)
			os.Exit(1)
		}
		if err := w.Start(ctx); err != nil {
			logger.Error("Failed to start inbox watcher: %v", err)
			os.Exit(1)
		}
		defer w.Close()
		logger.Info("Watching inbox: %s", cfg.Watcher.Inbox)
	}

	// Run the interactive menu in a goroutine so signals still shut the
	// process down while it blocks on stdin.
	ui := menu.New(authService, submitService, loginTrail, submissionTrail,
		logging.NewLogger("menu", level, logOutput))
	menuErr := make(chan error, 1)
	go func() {
		menuErr <- ui.Run(ctx)
	}()

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-menuErr:
		if err != nil {
			logger.Error("Menu session failed: %v", err)
		}
	case sig := <-sigChan:
		logger.Info("Received %s, shutting down...", sig)
		cancel()
	}

	logger.Info("ExamGate stopped")
}
