package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/webhook"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

func replayCmd() *cobra.Command {
	var filter repository.ReplayFilter

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-dispatch logged webhook payloads through the reconciler",
		Long: `Replays logged events oldest first. Every reconciliation write is an
upsert, so replaying rebuilds profiles and memberships without duplicates.
No new log rows are written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, log, err := openStore()
			if err != nil {
				return err
			}
			repos := repository.NewRepositories(db)
			service := webhook.NewService(repos, whop.NewClientFromConfig(cfg.Whop, log), log)
			return runReplay(cmd.Context(), service, filter, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 0, "Replay at most the N most recent events (0 = all)")
	cmd.Flags().StringVarP(&filter.EventType, "type", "t", "", "Only replay events of this type")
	return cmd
}

func runReplay(ctx context.Context, service *webhook.Service, filter repository.ReplayFilter, out io.Writer) error {
	if filter.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	result, err := service.Replay(ctx, filter)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Events:   %d\n", result.Total)
	fmt.Fprintf(out, "Replayed: %d\n", result.Replayed)
	fmt.Fprintf(out, "Failed:   %d\n", result.Failed)
	fmt.Fprintf(out, "Skipped:  %d\n", result.Skipped)

	actions := make([]string, 0, len(result.Actions))
	for action := range result.Actions {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	for _, action := range actions {
		fmt.Fprintf(out, "  %-20s %d\n", action, result.Actions[action])
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d events failed to replay", result.Failed)
	}
	return nil
}
