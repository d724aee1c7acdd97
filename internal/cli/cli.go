// Package cli builds the simulator's cobra command tree: a root command
// with persistent flags, a run subcommand, and a version subcommand.
package cli

import (
	"github.com/spf13/cobra"
)

// App wraps the root command and the flags every subcommand reads.
type App struct {
	rootCmd *cobra.Command

	configPath string
	dev        bool

	version string
	commit  string
	date    string
}

// New builds the CLI application.
func New() *App {
	app := &App{}
	app.setupRootCmd()
	app.addRunCmd()
	app.addVersionCmd()
	return app
}

// Execute runs the CLI.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion records build-time version info for the version subcommand.
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
}

func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:           "loadsim",
		Short:         "Closed-loop autoscaling simulator",
		Long:          "loadsim runs a synthetic request-serving cluster with a PD-controlled worker pool, for studying autoscaling behaviour under load.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file (optional; flags below override it)")
	a.rootCmd.PersistentFlags().BoolVar(&a.dev, "dev", false, "use a human-readable development logger instead of JSON")
}
