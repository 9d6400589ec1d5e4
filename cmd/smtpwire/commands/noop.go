package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/busybox42/smtpwire/internal/client"
)

// noopCmd is the smoke test: connect, NOOP, close.
var noopCmd = &cobra.Command{
	Use:   "noop",
	Short: "Connect, issue NOOP, and close",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// The smoke-test default target is a local relay on 2525.
		if host == "" && port == 0 && configPath == "" {
			cfg.Server.Host = "127.0.0.1"
			cfg.Server.Port = 2525
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Server.Timeout+5)*time.Second)
		defer cancel()

		conn, err := client.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		if err := conn.Noop(ctx); err != nil {
			_ = conn.Close(ctx)
			return fmt.Errorf("noop: %w", err)
		}

		if err := conn.Close(ctx); err != nil {
			return fmt.Errorf("close: %w", err)
		}

		fmt.Printf("NOOP round-trip to %s OK\n", cfg.Address())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noopCmd)
}
