package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/archive"
)

func exportCmd() *cobra.Command {
	var (
		since  string
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the webhook event log as JSONL to S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since %q: %w", since, err)
			}

			cfg, db, log, err := openStore()
			if err != nil {
				return err
			}
			events := repository.NewWebhookEventRepository(db)

			if stdout {
				return runExport(cmd.Context(), events, nil, from, cmd.OutOrStdout())
			}

			client, err := archive.NewS3Client(cmd.Context(), cfg.S3)
			if err != nil {
				return err
			}
			exporter := archive.NewExporter(client, cfg.S3.Bucket, log)
			return runExport(cmd.Context(), events, exporter, from, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Export events created at or after this RFC3339 time")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write JSONL to stdout instead of uploading")
	_ = cmd.MarkFlagRequired("since")
	return cmd
}

// runExport writes events since from to exporter, or as JSONL to out when exporter is nil.
func runExport(ctx context.Context, events repository.WebhookEventRepository, exporter *archive.Exporter, from time.Time, out io.Writer) error {
	list, err := events.ListSince(ctx, from)
	if err != nil {
		return fmt.Errorf("list events since %s: %w", from.Format(time.RFC3339), err)
	}

	if exporter == nil {
		_, err := archive.WriteJSONL(out, list)
		return err
	}

	result, err := exporter.Export(ctx, list)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d events to s3://%s/%s (%d bytes)\n", result.Events, result.Bucket, result.ObjectKey, result.Size)
	return nil
}
