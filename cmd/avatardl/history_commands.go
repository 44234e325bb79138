package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"avatardl/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past download batches",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				batches, err := store.ListBatches(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, batches)
				}
				out := cmd.OutOrStdout()
				if len(batches) == 0 {
					fmt.Fprintln(out, "No batches recorded")
					return nil
				}
				rows := make([][]string, 0, len(batches))
				for _, b := range batches {
					state := "done"
					if b.Cleared {
						state = "cleared"
					}
					rows = append(rows, []string{
						shortID(b.ID),
						formatTimestamp(b.StartedAt),
						strconv.Itoa(b.Total),
						strconv.Itoa(b.Completed),
						strconv.Itoa(b.Failed),
						formatPercent(b.OverallPercent),
						state,
						b.Directory,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "Batch"},
					{title: "Started"},
					{title: "Total", align: alignRight},
					{title: "Done", align: alignRight},
					{title: "Failed", align: alignRight},
					{title: "Progress", align: alignRight},
					{title: "State"},
					{title: "Directory", maxWidth: 40},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum batches to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type batchDetail struct {
	Batch history.Batch  `json:"batch"`
	Tasks []history.Task `json:"tasks"`
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show the tasks of one batch (ID prefixes are accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				batch, err := store.GetBatch(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				tasks, err := store.Tasks(cmd.Context(), batch.ID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, batchDetail{Batch: *batch, Tasks: tasks})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Batch:     %s\n", batch.ID)
				fmt.Fprintf(out, "Started:   %s\n", formatTimestamp(batch.StartedAt))
				fmt.Fprintf(out, "Directory: %s\n", batch.Directory)
				fmt.Fprintf(out, "Progress:  %d of %d complete, %d failed (%s)\n",
					batch.Completed, batch.Total, batch.Failed, formatPercent(batch.OverallPercent))
				if batch.Cleared {
					fmt.Fprintln(out, "Queue was cleared before finishing")
				}

				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					status := string(t.Status)
					if t.Removed {
						status = "cancelled"
					}
					detail := t.OutputPath
					if t.ErrorMessage != "" {
						detail = fmt.Sprintf("%s: %s", t.ErrorKind, t.ErrorMessage)
					}
					rows = append(rows, []string{
						strconv.Itoa(t.Position + 1),
						status,
						t.DisplayName,
						strconv.Itoa(t.Attempts),
						formatBytes(t.BytesWritten),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "#", align: alignRight},
					{title: "Status"},
					{title: "File"},
					{title: "Attempts", align: alignRight},
					{title: "Size", align: alignRight},
					{title: "Output / Error", maxWidth: 60},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
