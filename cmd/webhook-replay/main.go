package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ManuelReschke/TherapyGames/internal/pkg/env"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := replayOptions{}

	cmd := &cobra.Command{
		Use:   "webhook-replay [payload.json]",
		Short: "Sign a stored webhook payload and post it to a running instance",
		Long: `Reads a provider webhook body from a file, signs it with the local
BILLING_WEBHOOK_SECRET and posts it to the billing webhook route.

Example:
  webhook-replay testdata/subscription_created.json --url http://localhost:4000/webhooks/billing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env.SetupEnvFile()
			if opts.secret == "" {
				opts.secret = env.GetEnv("BILLING_WEBHOOK_SECRET", "")
			}

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			status, body, err := replay(payload, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, body)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:4000/webhooks/billing", "webhook endpoint")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "signing secret (defaults to BILLING_WEBHOOK_SECRET)")
	cmd.Flags().BoolVar(&opts.unsigned, "unsigned", false, "send without X-Signature")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}
