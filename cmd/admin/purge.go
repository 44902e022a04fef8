package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/docmind/internal/bootstrap"
	"github.com/spf13/cobra"
)

func purgeCmd() *cobra.Command {
	var documentID string
	var deletedBefore string

	command := &cobra.Command{
		Use:   "purge",
		Short: "Physically remove a document, its artifacts, blob and vectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (documentID == "") == (deletedBefore == "") {
				return errors.New("exactly one of --document or --deleted-before is required")
			}
			var before time.Time
			if deletedBefore != "" {
				var err error
				if before, err = parseCutoff(deletedBefore, time.Now()); err != nil {
					return err
				}
			}

			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if documentID != "" {
					doc, err := app.Orchestrator.Purge(ctx, documentID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "purged %s (%s)\n", doc.ID, doc.Title)
					return nil
				}
				ids, err := app.Orchestrator.PurgeDeletedBefore(ctx, before)
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d documents purged\n", len(ids))
				return err
			})
		},
	}
	command.Flags().StringVarP(&documentID, "document", "d", "", "document id")
	command.Flags().StringVar(&deletedBefore, "deleted-before", "", "purge soft deleted documents deleted before this RFC3339 time, or this long ago (e.g. 720h)")
	return command
}

// parseCutoff accepts an RFC3339 timestamp or a duration counted back from now.
func parseCutoff(v string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return time.Time{}, errors.New("--deleted-before duration must be positive")
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--deleted-before must be a duration or RFC3339 time: %w", err)
	}
	return t, nil
}
