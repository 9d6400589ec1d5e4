package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/busybox42/smtpwire/internal/client"
)

var (
	// Global configuration
	configPath string
	host       string
	port       int
	timeout    int
	useTLS     bool
	verbose    bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "smtpwire",
		Short: "smtpwire - SMTP client protocol probe",
		Long: `A command-line tool for exercising SMTP servers through the smtpwire
client: connect, round-trip commands, and close cleanly.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to TOML config file")
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "", "Server host (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "Server port (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&timeout, "timeout", "t", 0, "Connect timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&useTLS, "tls", false, "Connect over TLS")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// loadConfig merges the config file with command-line overrides.
func loadConfig() (*client.Config, error) {
	cfg, err := client.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if timeout != 0 {
		cfg.Server.Timeout = timeout
	}
	if useTLS {
		cfg.Security.Mode = client.SecurityTLS
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
