// Package main implements the quickset server binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/quickset/quickset/internal/app"
	"github.com/quickset/quickset/internal/config"
	"github.com/quickset/quickset/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		addr        string
		authLevel   string
		logLevel    string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&addr, "addr", "", "Listen address (host:port)")
	flag.StringVar(&authLevel, "auth-level", "", "Auth level: none, write, read, all")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "quickset - in-memory indexed table store\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quickset [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quickset --addr 0.0.0.0:8080\n")
		fmt.Fprintf(os.Stderr, "  quickset --config /etc/quickset/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  QUICKSET_HOST, QUICKSET_PORT       Listen address\n")
		fmt.Fprintf(os.Stderr, "  QUICKSET_AUTH_LEVEL                none, write, read, all\n")
		fmt.Fprintf(os.Stderr, "  QUICKSET_ADMIN_USER/_ADMIN_PASS    Seed admin credentials\n")
		fmt.Fprintf(os.Stderr, "  QUICKSET_LOG                       Log level\n")
		fmt.Fprintf(os.Stderr, "  QUICKSET_SEQ_URL                   Ship logs to a Seq server\n")
		fmt.Fprintf(os.Stderr, "  QUICKSET_TABLE_DEFAULT_CAPACITY    Default table capacity\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("quickset version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// A local .env is optional
	_ = godotenv.Load()

	cfg, err := loadConfig(configFile, addr, authLevel, logLevel)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, cleanup := logging.Setup(cfg.LogLevel, cfg.SeqURL)
	defer cleanup()

	printBanner(cfg)

	application, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	if err := application.WaitForShutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if err := application.Stop(context.Background()); err != nil {
		logger.Error("stop error", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers configuration: file, then environment, then flags.
func loadConfig(configFile, addr, authLevel, logLevel string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid --addr %q: %w", addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --addr port %q: %w", portStr, err)
		}
		cfg.Host = host
		cfg.Port = port
	}
	if authLevel != "" {
		cfg.AuthLevel = config.AuthLevel(authLevel)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

// printBanner prints the startup banner with a configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("╔════════════════════════════════════════════╗")
	log.Printf("║                  QUICKSET                  ║")
	log.Printf("║     in-memory indexed table store          ║")
	log.Printf("╚════════════════════════════════════════════╝")
	log.Printf("")
	log.Printf("Configuration:")
	log.Printf("  Listen:     %s", cfg.Addr())
	log.Printf("  Auth Level: %s", cfg.AuthLevel)
	log.Printf("  Log Level:  %s", cfg.LogLevel)
	log.Printf("  Default Capacity: %d", cfg.TableDefaultCapacity)
	if cfg.Sync.Interval > 0 && len(cfg.Sync.Sources) > 0 {
		log.Printf("  Sync: %d sources every %v", len(cfg.Sync.Sources), cfg.Sync.Interval)
	}
	log.Printf("")
}
