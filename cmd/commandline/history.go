package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ethanbaker/mentor/pkg/sdk"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		view, err := client.OpenView(ctx, openRequest())
		if err != nil {
			return fmt.Errorf("open view: %w", err)
		}
		defer client.CloseView(context.Background(), view.ID)

		conversations, err := client.History(ctx, view.ID, historyLimit)
		if err != nil {
			return err
		}

		printHistory(cmd.OutOrStdout(), conversations, "")
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max results")
}

func printHistory(out io.Writer, conversations []sdk.ConversationSummary, activeID string) {
	if len(conversations) == 0 {
		fmt.Fprintln(out, "No past conversations.")
		return
	}

	for _, c := range conversations {
		marker := " "
		if c.ID == activeID {
			marker = "*"
		}

		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(out, "%s %s  %s  %3d turns  %s\n", marker, c.ID, c.UpdatedAt.Local().Format("2006-01-02 15:04"), c.TurnCount, title)
	}
}
