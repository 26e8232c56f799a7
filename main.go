package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xme/CertStreamMonitor/internal/alert"
	"github.com/xme/CertStreamMonitor/internal/config"
	"github.com/xme/CertStreamMonitor/internal/database"
	"github.com/xme/CertStreamMonitor/internal/enrich"
	"github.com/xme/CertStreamMonitor/internal/notify"
	"github.com/xme/CertStreamMonitor/internal/prober"
	"github.com/xme/CertStreamMonitor/internal/scanner"
	"github.com/xme/CertStreamMonitor/internal/useragent"
)

// Version information
const (
	Version = "1.0.0"
	Module  = "scanhost"
)

// cliOptions carries the command-line settings into the pipeline wiring.
type cliOptions struct {
	configFile string
	fqdnDirs   bool
}

// newRootCmd builds the CLI surface. Errors stay silenced because main
// prints them with its own marker; usage still prints on a bad option.
func newRootCmd(opts *cliOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scanhost",
		Short:         "Probe the certificate hostnames collected in the database",
		Long:          "scanhost walks the hostnames harvested from certificate transparency,\nprobes each one over HTTPS and records which are live on the internet.",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run(opts.configFile, opts.fqdnDirs)
			return nil
		},
	}
	rootCmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "configuration file (YAML)")
	rootCmd.Flags().BoolVarP(&opts.fqdnDirs, "fqdn-dirs", "f", false, "store alerts under reversed-FQDN directories")
	return rootCmd
}

func main() {
	opts := &cliOptions{}
	rootCmd := newRootCmd(opts)

	// Invoked bare, show the help text and leave quietly.
	if len(os.Args) < 2 {
		if err := rootCmd.Help(); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}
}

// run wires the pipeline and executes one batch. Failures past option
// parsing exit directly; cobra already had its chance.
func run(configFile string, fqdnDirs bool) {
	if configFile == "" {
		fmt.Fprintln(os.Stderr, "❌ No configuration file given, use -c <file>")
		os.Exit(1)
	}
	if _, err := os.Stat(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration file not found: %s\n", configFile)
		os.Exit(1)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}
	cfg.FQDNDirs = fqdnDirs
	logger := cfg.Logger

	printBanner()
	cfg.PrintConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBFile)
	if err != nil {
		logger.Errorf("Database error: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	resolver, err := enrich.NewResolver()
	if err != nil {
		logger.Errorf("Resolver error: %v", err)
		os.Exit(1)
	}

	pool := useragent.Load(cfg.UAFile, cfg.HTTPUserAgent, logger)
	notifier, err := notify.New(cfg.Notifications, logger)
	if err != nil {
		logger.Errorf("Notification error: %v", err)
		os.Exit(1)
	}

	s := scanner.New(
		database.NewRepository(db, cfg.TableName, logger),
		prober.New(pool, cfg.ProxyURL(), logger),
		enrich.NewGatherer(
			resolver,
			enrich.NewRDAPClient(cfg.RDAPBaseURL, logger),
			enrich.NewSafeBrowsingClient("", cfg.SafeBrowsingAPIKey, logger),
			logger,
		),
		alert.NewWriter(cfg.AlertsDir, cfg.FQDNDirs, logger),
		notifier,
		cfg.ProbeInterval,
		cfg.MaxAttempts,
		logger,
	)

	logger.Info("Test all domains in DB for Internet Presence:")
	if _, err := s.Run(ctx); err != nil {
		logger.Errorf("Scan failed: %v", err)
		os.Exit(1)
	}
}

// printBanner displays the module banner
func printBanner() {
	banner := fmt.Sprintf(`
╔════════════════════════════════════════════════════════════╗
║       SCANHOST - CERTIFICATE HOSTNAME VERIFIER             ║
║                CertStreamMonitor                           ║
╠════════════════════════════════════════════════════════════╣
║  Version: %-49s ║
║  Module: %-50s ║
╚════════════════════════════════════════════════════════════╝
`, Version, Module)

	fmt.Println(banner)
}
