// Package cli is the structmap command line: it resolves configuration,
// runs builds, writes artifacts and hosts the preview server.
package cli

import (
	"strings"

	"structmap/internal/core/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is reported by --version.
var Version = "1.0.0"

type options struct {
	configPath string
	rootDir    string
	outFile    string
	pretty     bool
	port       int
	webDir     string
	open       bool
	excludes   []string
	dot        string
	mermaid    string
	markdown   string
	watch      bool
	ui         bool
	history    bool
	verbose    bool
}

// NewRootCmd creates the structmap command and its subcommands.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{})
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "structmap",
		Short: "Generates and displays a levelized structure map for ECMAScript/TypeScript modules.",
		Long: `structmap groups the modules under a root directory into a package tree,
assigns every package and module a dependency level within its sibling group
and writes the result as a JSON view model for the diagram viewer.

Without --outFile the view model is written to a temporary directory and
served by a local preview server.`,
		Example: `  structmap --rootDir ./src
  structmap --rootDir ./src --outFile structure.json --pretty
  structmap --rootDir ./src --exclude "**/*.spec.ts" --watch --ui`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}
	root.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the TOML config file")
	pf.StringVar(&opts.rootDir, "rootDir", "", "Root directory of the input files")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	f := root.Flags()
	f.StringVar(&opts.outFile, "outFile", "", "Output path for the structure map JSON file; omit to preview in the browser")
	f.BoolVar(&opts.pretty, "pretty", false, "Pretty-print the structure map JSON file")
	f.IntVarP(&opts.port, "port", "p", 3000, "Port of the preview server; unused with --outFile")
	f.StringVar(&opts.webDir, "webDir", "", "Directory of the viewer web app served by the preview server")
	f.BoolVar(&opts.open, "open", false, "Open the preview URL in the default browser")
	f.StringArrayVar(&opts.excludes, "exclude", nil, "Root-relative glob of files or directories to skip (repeatable)")
	f.StringVar(&opts.dot, "dot", "", "Also write a Graphviz DOT rendering to this path")
	f.StringVar(&opts.mermaid, "mermaid", "", "Also write a Mermaid rendering to this path")
	f.StringVar(&opts.markdown, "markdown", "", "Also write a Markdown level report to this path")
	f.BoolVar(&opts.watch, "watch", false, "Rebuild whenever a source file changes")
	f.BoolVar(&opts.ui, "ui", false, "Show a terminal dashboard while watching")
	f.BoolVar(&opts.history, "history", false, "Record a summary of every build in the history database")

	root.AddCommand(newHistoryCmd(opts), newQueryCmd(opts))
	return root
}

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		reportError(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// resolveConfig loads the config file, then env overrides, then flags the
// operator set explicitly. The result is validated and never mutated again.
func resolveConfig(flags *pflag.FlagSet, opts *options) (*config.Config, error) {
	explicit := flags.Changed("config")
	cfg, err := config.LoadOrDefault(opts.configPath, explicit)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg)
	applyFlags(cfg, flags, opts)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet, opts *options) {
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("rootDir") {
		cfg.RootDir = opts.rootDir
	}
	if changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, opts.excludes...)
	}
	if changed("outFile") {
		cfg.Output.File = strings.TrimSpace(opts.outFile)
	}
	if changed("pretty") {
		cfg.Output.Pretty = opts.pretty
	}
	if changed("dot") {
		cfg.Output.DOT = opts.dot
	}
	if changed("mermaid") {
		cfg.Output.Mermaid = opts.mermaid
	}
	if changed("markdown") {
		cfg.Output.Markdown = opts.markdown
	}
	if changed("port") {
		cfg.Preview.Port = opts.port
	}
	if changed("webDir") {
		cfg.Preview.WebDir = opts.webDir
	}
	if changed("open") {
		cfg.Preview.Open = opts.open
	}
	if changed("watch") {
		cfg.Watch.Enabled = opts.watch
	}
	if changed("history") {
		cfg.History.Enabled = opts.history
	}
}
