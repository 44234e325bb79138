package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"avatardl/internal/resolve"
)

type resolvedAvatar struct {
	AvatarID string                   `json:"avatar_id"`
	Name     string                   `json:"name"`
	Files    []resolve.FileDescriptor `json:"files"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var all bool

	cmd := &cobra.Command{
		Use:   "resolve [avatar-id...]",
		Short: "Show the deduplicated files an avatar resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name at least one avatar or pass --all")
			}
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			resolver, err := ctx.newResolver()
			if err != nil {
				return err
			}

			records := cat.All()
			if !all {
				if records, err = selectRecords(cat, args); err != nil {
					return err
				}
			}

			results := make([]resolvedAvatar, 0, len(records))
			for _, rec := range records {
				results = append(results, resolvedAvatar{
					AvatarID: rec.ID,
					Name:     rec.DisplayName(),
					Files:    resolver.Resolve(rec),
				})
			}

			if asJSON {
				return writeJSON(cmd, results)
			}
			out := cmd.OutOrStdout()
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s (%s)\n", r.Name, r.AvatarID)
				if len(r.Files) == 0 {
					fmt.Fprintln(out, "  no downloadable files")
					continue
				}
				rows := make([][]string, 0, len(r.Files))
				for _, d := range r.Files {
					filename := d.Filename
					if filename == "" {
						filename = "-"
					}
					rows = append(rows, []string{d.ID, string(d.Category), d.Label, filename, yesNo(d.Variant), d.URL})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "ID"},
					{title: "Category"},
					{title: "Label"},
					{title: "Filename"},
					{title: "Variant"},
					{title: "URL", maxWidth: 60},
				}, rows))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&all, "all", false, "Resolve every avatar in the catalog")
	return cmd
}
