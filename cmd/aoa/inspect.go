package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the threshold and feature weights of a fitted estimator",
	RunE: func(cmd *cobra.Command, _ []string) error {
		modelPath, _ := cmd.Flags().GetString("model")
		if modelPath == "" {
			return eris.New("inspect: --model is required")
		}

		est, err := loadEstimator(modelPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		th := est.Threshold()
		ecfg := est.Config()
		trainDI := est.TrainingDI()

		_, _ = fmt.Fprintf(out, "training samples: %d\n", len(trainDI))
		_, _ = fmt.Fprintf(out, "index:            %s\n", ecfg.Index)
		_, _ = fmt.Fprintf(out, "central:          %s (divisor %.6g)\n", th.Central, th.Divisor)
		_, _ = fmt.Fprintf(out, "fence:            Q3 %.6g + %.6g * IQR %.6g = %.6g\n", th.Q3, th.Multiplier, th.IQR, th.Cutoff)
		_, _ = fmt.Fprintf(out, "cutoff DI:        %.6g\n", th.CutoffDI())
		_, _ = fmt.Fprintf(out, "training DI mean: %.6g\n\n", stat.Mean(trainDI, nil))

		stats := est.Stats()
		weights := est.Weights()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "FEATURE\tWEIGHT\tMEAN\tSTDDEV")
		for j, name := range est.Names() {
			_, _ = fmt.Fprintf(w, "%s\t%.4f\t%.6g\t%.6g\n", name, weights.At(j), stats.Mean[j], stats.StdDev[j])
		}
		return w.Flush()
	},
}

func init() {
	inspectCmd.Flags().String("model", "", "fitted estimator written by fit")
	rootCmd.AddCommand(inspectCmd)
}
