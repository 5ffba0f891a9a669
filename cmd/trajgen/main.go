package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/trajgen/internal/config"
)

var (
	dataDir string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "trajgen",
		Short:         "feed-forward trajectory planning by spline collocation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDir, "run directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log planner events")

	rootCmd.AddCommand(
		newSolveCmd(),
		newBatchCmd(),
		&cobra.Command{
			Use:   "list",
			Short: "list stored runs",
			Args:  cobra.NoArgs,
			RunE:  listRuns,
		},
		newPlotCmd(),
		newExportCmd(),
		&cobra.Command{
			Use:   "problems",
			Short: "list built-in problems",
			Args:  cobra.NoArgs,
			RunE:  listProblems,
		},
		&cobra.Command{
			Use:   "presets",
			Short: "list configuration presets",
			Args:  cobra.NoArgs,
			RunE:  listPresets,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func listProblems(cmd *cobra.Command, args []string) error {
	reg := config.Registry()
	w := newTable()
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, name := range reg.Names() {
		e, _ := reg.Get(name)
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Description)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := newTable()
	fmt.Fprintln(w, "PRESET\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p, _ := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\n", name, p.Description)
	}
	return w.Flush()
}
