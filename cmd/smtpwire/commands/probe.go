package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/busybox42/smtpwire/internal/client"
	"github.com/busybox42/smtpwire/internal/wire"
)

var (
	probeFrom     string
	probeIdentity string
)

// probeCmd walks the opening of a transaction without transferring a
// message: EHLO, MAIL FROM with a fresh envelope ID, RSET, QUIT.
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Exercise EHLO, MAIL FROM, and RSET against a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		from, err := wire.ParsePathAddress(probeFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Server.Timeout+10)*time.Second)
		defer cancel()

		conn, err := client.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer conn.Close(ctx)

		reply, err := conn.Write(ctx, wire.Out(wire.Ehlo{
			Identity: wire.ParseClientIdentity(probeIdentity),
		}))
		if err != nil {
			return fmt.Errorf("ehlo: %w", err)
		}
		fmt.Printf("EHLO %s\n", reply.Code.String())
		for _, line := range strings.Split(strings.TrimSuffix(reply.Message, "\r\n"), "\r\n") {
			fmt.Printf("  %s\n", line)
		}

		envID := client.NewEnvelopeID()
		reply, err = conn.Write(ctx, wire.Out(&wire.MailFrom{
			ReversePath: from,
			EnvelopeID:  envID,
			Ret:         wire.ReturnHeaders,
		}))
		if err != nil {
			return fmt.Errorf("mail from: %w", err)
		}
		fmt.Printf("MAIL FROM %s (ENVID=%s)\n", reply.Code.String(), envID)

		reply, err = conn.Write(ctx, wire.Out(wire.Rset{}))
		if err != nil {
			return fmt.Errorf("rset: %w", err)
		}
		fmt.Printf("RSET %s\n", reply.Code.String())

		return nil
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeFrom, "from", "postmaster@localhost", "Reverse-path for MAIL FROM")
	probeCmd.Flags().StringVar(&probeIdentity, "identity", "localhost", "Client identity for EHLO")
	rootCmd.AddCommand(probeCmd)
}
