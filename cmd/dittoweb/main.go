package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittoweb/internal/logger"
	"github.com/marmos91/dittoweb/pkg/config"
	"github.com/marmos91/dittoweb/pkg/handler"
	"github.com/marmos91/dittoweb/pkg/server"
	"github.com/marmos91/dittoweb/pkg/store/docroot"
	docbadger "github.com/marmos91/dittoweb/pkg/store/docroot/badger"
)

const usage = `dittoweb - static HTTP/1.0 document server

Usage:
  dittoweb [serve] [flags]    Start the server (default command)
  dittoweb init [flags]       Write a default configuration file
  dittoweb import [flags]     Copy a directory tree into a document store

Run 'dittoweb <command> -h' for command flags.
`

func main() {
	args := os.Args[1:]

	command := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "serve":
		err = runServe(args)
	case "init":
		err = runInit(args)
	case "import":
		err = runImport(args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittoweb/config.yaml)")
	logLevel := fs.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid -log-level: %w", err)
		}
	}

	if err := configureLogging(cfg.Logging); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}
	logger.Info("Document store: %s", cfg.Store.Type)

	metricsResult := config.InitializeMetrics(cfg)

	adapters, err := config.CreateAdapters(cfg, handler.New(store), metricsResult.HTTPMetrics)
	if err != nil {
		_ = store.Close()
		return err
	}

	srv := server.New(store, cfg.Server.ShutdownTimeout)
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to register adapter: %w", err)
		}
	}
	if metricsResult.Server != nil {
		srv.SetMetricsServer(metricsResult.Server)
		logger.Info("Metrics enabled on port %d", metricsResult.Server.Port())
	}

	logger.Info("dittoweb is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func configureLogging(cfg config.LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)
	if err := logger.SetOutput(cfg.Output); err != nil {
		return fmt.Errorf("failed to configure log output: %w", err)
	}
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	path := fs.String("config", "", "Write to this path instead of the default location")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := *path
	if target == "" {
		var err error
		if target, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(target, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", target)
	return nil
}

// runImport copies a directory tree into a Badger database (-db) or, without
// -db, into the store named by the configuration.
func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dbPath := fs.String("db", "", "Badger database directory to import into")
	src := fs.String("src", "", "Directory tree to import (required)")
	configPath := fs.String("config", "", "Config file naming the target store when -db is not set")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *src == "" {
		fs.Usage()
		return errors.New("import: -src is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store docroot.WritableStore
		err   error
	)
	if *dbPath != "" {
		store, err = docbadger.NewBadgerStore(ctx, docbadger.BadgerStoreConfig{DBPath: *dbPath})
	} else {
		var cfg *config.Config
		if cfg, err = config.Load(*configPath); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := configureLogging(cfg.Logging); err != nil {
			return err
		}
		store, err = config.CreateStore(ctx, &cfg.Store)
	}
	if err != nil {
		return fmt.Errorf("failed to open target store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing store: %v", err)
		}
	}()

	count, err := docroot.ImportDir(ctx, store, *src)
	if err != nil {
		return fmt.Errorf("import failed after %d document(s): %w", count, err)
	}

	fmt.Printf("Imported %d document(s) from %s\n", count, *src)
	return nil
}
