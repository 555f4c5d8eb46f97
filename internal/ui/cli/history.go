package cli

import (
	"fmt"
	"io"
	"time"

	coreapp "structmap/internal/core/app"
	"structmap/internal/core/errors"
	"structmap/internal/data/history"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit int
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds of the root directory",
		Long: `List the builds recorded in the history database for the root directory,
newest first. Builds are recorded when --history or [history].enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLog := configureLogging(false, opts.verbose)
			defer closeLog()

			cfg, err := resolveConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			a, err := coreapp.New(cfg)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return errors.AddContext(errors.Wrap(err, errors.CodeIO, "open build history"), errors.CtxPath, cfg.History.Path)
			}
			defer store.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			builds, err := store.LoadBuilds(a.Root, from, limit)
			if err != nil {
				return errors.Wrap(err, errors.CodeIO, "load build history")
			}
			renderHistory(cmd.OutOrStdout(), a.Root, builds)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of builds to list; 0 lists all")
	cmd.Flags().DurationVar(&since, "since", 0, "Only list builds newer than this duration, e.g. 24h")
	return cmd
}

func renderHistory(w io.Writer, root string, builds []history.Build) {
	if len(builds) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no builds recorded for "+root))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Built", "Files", "Modules", "Packages", "Edges", "Cycles", "Unresolved", "Max Level", "Duration"})
	for _, b := range builds {
		t.AppendRow(table.Row{
			shortRunID(b.RunID),
			b.Timestamp.Local().Format(time.DateTime),
			b.FileCount,
			b.ModuleCount,
			b.PackageCount,
			b.EdgeCount,
			b.CyclicGroups,
			b.UnresolvedCount,
			b.MaxLevel,
			b.Duration,
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("Total: %d builds", len(builds))})
	t.Render()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
