package cli

import (
	"fmt"
	"io"

	coreapp "structmap/internal/core/app"
	"structmap/internal/core/errors"
	"structmap/internal/data/query"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newQueryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <statement>",
		Short: "Build the structure map and list the nodes matching a query",
		Long: `Build the structure map and list the nodes matching a statement of the form

  SELECT modules|packages|nodes [WHERE cond [AND cond]...] [ORDER BY field [ASC|DESC]]

Numeric fields: level, fan_in, fan_out, children, unresolved, cyclic (true/false).
String fields: id, name, kind, parent, language (=, != or CONTAINS).
fan_in and fan_out count edges inside the node's own sibling group.`,
		Example: `  structmap query --rootDir ./src 'SELECT modules WHERE cyclic = true'
  structmap query 'SELECT packages WHERE level >= 2 ORDER BY fan_out DESC'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closeLog := configureLogging(false, opts.verbose)
			defer closeLog()

			q, err := query.Parse(args[0])
			if err != nil {
				return errors.Wrap(err, errors.CodeValidationError, "parse query")
			}
			cfg, err := resolveConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			a, err := coreapp.New(cfg)
			if err != nil {
				return err
			}
			res, err := a.Build(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := query.Execute(q, query.Collect(res.Tree), limit)
			if err != nil {
				return errors.Wrap(err, errors.CodeValidationError, "execute query")
			}
			renderRows(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows; 0 lists all")
	return cmd
}

func renderRows(w io.Writer, rows []query.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Kind", "Parent", "Level", "Cyclic", "Fan In", "Fan Out", "Unresolved"})
	for _, r := range rows {
		cyclic := ""
		if r.Cyclic {
			cyclic = "yes"
		}
		t.AppendRow(table.Row{r.ID, r.Kind, r.Parent, r.Level, cyclic, r.FanIn, r.FanOut, r.Unresolved})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("Total: %d rows", len(rows))})
	t.Render()
}
