package main

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tSTATUS\tRESIDUAL\tSEGMENTS\tSOLVE")
	for _, run := range runs {
		status := "ok"
		if !run.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3g\t%d\t%.2fs\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			status,
			run.Residual,
			run.SegmentsX,
			run.Seconds,
		)
	}
	return w.Flush()
}

func newPlotCmd() *cobra.Command {
	var (
		height int
		width  int
		inputs bool
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the states and inputs of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			data, err := st.LoadSamples(args[0])
			if err != nil {
				return err
			}
			if len(data.Times) == 0 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("problem: %s\n", meta.Problem)
			fmt.Printf("samples: %d on [%g, %g]\n\n", len(data.Times), data.Times[0], data.Times[len(data.Times)-1])
			for _, s := range series(data, inputs) {
				fmt.Println(asciigraph.Plot(s.values,
					asciigraph.Height(height),
					asciigraph.Width(width),
					asciigraph.Caption(s.caption),
				))
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&height, "height", 10, "plot height")
	cmd.Flags().IntVar(&width, "width", 80, "plot width")
	cmd.Flags().BoolVar(&inputs, "inputs", true, "also plot the inputs")
	return cmd
}

type plotSeries struct {
	caption string
	values  []float64
}

// series splits sampled data into one column per variable.
func series(data *planner.SimData, inputs bool) []plotSeries {
	var out []plotSeries
	column := func(rows [][]float64, i int) []float64 {
		col := make([]float64, len(rows))
		for j, r := range rows {
			col[j] = r[i]
		}
		return col
	}
	for i, name := range data.StateNames {
		out = append(out, plotSeries{caption: name + "(t)", values: column(data.States, i)})
	}
	if inputs {
		for i, name := range data.InputNames {
			out = append(out, plotSeries{caption: name + "(t)", values: column(data.Inputs, i)})
		}
	}
	return out
}

func newExportCmd() *cobra.Command {
	var (
		out     string
		format  string
		splines bool
	)
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON or an SVG plot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			switch format {
			case "json":
				return st.ExportJSON(args[0], out, splines)
			case "svg":
				return st.ExportSVG(args[0], out)
			default:
				return fmt.Errorf("unknown export format: %s", format)
			}
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format (json, svg)")
	cmd.Flags().BoolVar(&splines, "splines", false, "include the spline coefficients")
	return cmd
}
