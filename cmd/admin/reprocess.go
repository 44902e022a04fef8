package main

import (
	"context"
	"fmt"

	"github.com/akolanti/docmind/internal/bootstrap"
	"github.com/spf13/cobra"
)

func reprocessCmd() *cobra.Command {
	var documentID string

	command := &cobra.Command{
		Use:   "reprocess",
		Short: "Extract and annotate a document again, ignoring the owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				doc, err := app.Orchestrator.ReprocessNow(ctx, documentID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s words=%d\n", doc.ID, doc.Status, doc.Meta().WordCount)
				return nil
			})
		},
	}
	command.Flags().StringVarP(&documentID, "document", "d", "", "document id")
	_ = command.MarkFlagRequired("document")
	return command
}
