package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"avatardl/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the avatar catalog",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	return catalogCmd
}

type catalogEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Deployed    int    `json:"deployed_files"`
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List avatars in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}

			entries := make([]catalogEntry, 0, cat.Len())
			for _, rec := range cat.All() {
				deployed := 0
				for _, category := range catalog.Categories() {
					deployed += len(rec.Deployed.For(category))
				}
				entries = append(entries, catalogEntry{
					ID:          rec.ID,
					Name:        rec.DisplayName(),
					Description: rec.Description,
					Deployed:    deployed,
				})
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.ID, e.Name, strconv.Itoa(e.Deployed), truncate(e.Description, 48)})
			}
			fmt.Fprintln(out, renderTable([]column{
				{title: "ID"},
				{title: "Name"},
				{title: "Deployed", align: alignRight},
				{title: "Description", maxWidth: 48},
			}, rows))
			fmt.Fprintf(out, "%d avatars\n", len(entries))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
