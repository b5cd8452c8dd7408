package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/MemberGate/internal/pkg/env"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

func signCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the x-whop-signature for a payload file (- for stdin)",
		Long: `Computes the signature the provider would send for the exact bytes of the
file. Useful for replaying a captured delivery against a running server with curl.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = env.Environ()["WHOP_WEBHOOK_SECRET"]
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return runSign(in, secret, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Webhook secret (defaults to WHOP_WEBHOOK_SECRET)")
	return cmd
}

func runSign(in io.Reader, secret string, out io.Writer) error {
	if secret == "" {
		return errors.New("no webhook secret: pass --secret or set WHOP_WEBHOOK_SECRET")
	}
	payload, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, whop.SignWebhookPayload(payload, secret))
	return err
}
