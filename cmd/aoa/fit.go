package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hed1ad/goaoa/pkg/detectors/aoa"
	"github.com/hed1ad/goaoa/pkg/features"
	aoaio "github.com/hed1ad/goaoa/pkg/io"
	"github.com/hed1ad/goaoa/pkg/io/csv"
	"github.com/hed1ad/goaoa/pkg/io/shapefile"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit an AOA estimator on training samples",
	Long: "Reads training samples from a CSV table or a point shapefile, weights predictors by " +
		"the model's importance scores and stores the fitted estimator.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		trainPath, _ := cmd.Flags().GetString("train")
		importancePath, _ := cmd.Flags().GetString("importance")
		outPath, _ := cmd.Flags().GetString("out")
		if trainPath == "" || outPath == "" {
			return eris.New("fit: --train and --out are required")
		}

		groupColumn := cfg.Input.GroupColumn
		explicit := cmd.Flags().Changed("group-column")
		if explicit {
			groupColumn, _ = cmd.Flags().GetString("group-column")
		}
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		if cfg.Input.LabelColumn != "" {
			exclude = append(exclude, cfg.Input.LabelColumn)
		}

		reader, err := openTraining(trainPath, groupColumn, explicit, exclude)
		if err != nil {
			return err
		}
		defer func() { _ = reader.Close() }()

		train, err := reader.Read()
		if err != nil {
			return eris.Wrapf(err, "fit: read %s", trainPath)
		}
		if shp, ok := reader.(*shapefile.Reader); ok {
			ext := shp.Extent()
			zap.L().Info("training extent",
				zap.Float64s("min", []float64{ext.Min(0), ext.Min(1)}),
				zap.Float64s("max", []float64{ext.Max(0), ext.Max(1)}),
			)
		}

		var model features.TrainedModel
		if importancePath != "" {
			imp, err := features.LoadImportance(importancePath)
			if err != nil {
				return err
			}
			model = imp
		}

		est := aoa.New(cfg.Options()...)
		if err := est.Fit(train, model); err != nil {
			return eris.Wrap(err, "fit")
		}

		data, err := est.Save()
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return eris.Wrapf(err, "fit: write %s", outPath)
		}

		th := est.Threshold()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fitted %d samples, %d features: cutoff DI %.4f (distance %.4f)\n",
			train.NumRows(), train.NumFeatures(), th.CutoffDI(), th.Cutoff)
		return nil
	},
}

// openTraining picks a reader by file extension. A group column that does
// not exist is only an error when it was set explicitly.
func openTraining(path, groupColumn string, explicit bool, exclude []string) (aoaio.Reader, error) {
	if groupColumn != "" && !explicit {
		columns, err := trainingColumns(path)
		if err != nil {
			return nil, err
		}
		if !hasColumn(columns, groupColumn, isShapefile(path)) {
			zap.L().Debug("group column absent, each sample is its own group",
				zap.String("group_column", groupColumn))
			groupColumn = ""
		}
	}

	if isShapefile(path) {
		opts := []shapefile.Option{shapefile.WithExcludeFields(exclude...)}
		if groupColumn != "" {
			opts = append(opts, shapefile.WithGroupField(groupColumn))
		}
		return shapefile.NewReader(path, opts...)
	}

	opts := []csv.Option{csv.WithTraining(true), csv.WithExclude(exclude...)}
	if groupColumn != "" {
		opts = append(opts, csv.WithGroupColumn(groupColumn))
	}
	return csv.NewReader(path, opts...)
}

func trainingColumns(path string) ([]string, error) {
	if isShapefile(path) {
		r, err := shapefile.NewReader(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return r.FieldNames(), nil
	}

	r, err := csv.NewReader(path, csv.WithTraining(true))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.Headers(), nil
}

func isShapefile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".shp")
}

// hasColumn reports whether name is among columns. DBF field names are
// case-insensitive, CSV headers are not.
func hasColumn(columns []string, name string, fold bool) bool {
	for _, c := range columns {
		if c == name || (fold && strings.EqualFold(c, name)) {
			return true
		}
	}
	return false
}

func init() {
	fitCmd.Flags().String("train", "", "training samples (.csv or point .shp)")
	fitCmd.Flags().String("importance", "", "YAML mapping of feature name to importance score")
	fitCmd.Flags().String("group-column", "", "column holding the group (e.g. polygon) of each sample")
	fitCmd.Flags().StringSlice("exclude", nil, "columns that are not predictors")
	fitCmd.Flags().String("out", "", "file to write the fitted estimator to")
	rootCmd.AddCommand(fitCmd)
}
