package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/goaoa/pkg/detectors"
	"github.com/hed1ad/goaoa/pkg/detectors/aoa"
	aoaio "github.com/hed1ad/goaoa/pkg/io"
	"github.com/hed1ad/goaoa/pkg/io/csv"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute DI and AOA for query samples",
	Long: "Scores every row of a query table against a fitted estimator and writes " +
		"row, di, distance and aoa columns. Rows with missing predictors are written as NA.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		modelPath, _ := cmd.Flags().GetString("model")
		queryPath, _ := cmd.Flags().GetString("query")
		outPath, _ := cmd.Flags().GetString("out")
		stream, _ := cmd.Flags().GetBool("stream")
		if modelPath == "" || queryPath == "" {
			return eris.New("score: --model and --query are required")
		}

		est, err := loadEstimator(modelPath)
		if err != nil {
			return err
		}

		reader, err := csv.NewReader(queryPath,
			csv.WithColumns(est.Names()...),
			csv.WithNoData(cfg.Input.NoData),
		)
		if err != nil {
			return eris.Wrapf(err, "score: open %s", queryPath)
		}
		defer func() { _ = reader.Close() }()

		var result *detectors.Result
		if stream {
			result, err = scoreStream(ctx, est, reader)
		} else {
			result, err = scoreAll(ctx, est, reader)
		}
		if err != nil {
			return eris.Wrapf(err, "score: %s", queryPath)
		}

		var writer aoaio.Writer
		if outPath == "" || outPath == "-" {
			writer = csv.NewWriterTo(cmd.OutOrStdout())
		} else {
			writer, err = csv.NewWriter(outPath)
			if err != nil {
				return err
			}
		}
		if err := writer.Write(result); err != nil {
			_ = writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}

		inside, outside, nodata := result.Counts()
		zap.L().Info("scored query samples",
			zap.String("query", queryPath),
			zap.Int("inside", inside),
			zap.Int("outside", outside),
			zap.Int("nodata", nodata),
			zap.Float64("inside_fraction", result.InsideFraction()),
		)
		return nil
	},
}

func scoreAll(ctx context.Context, est *aoa.Estimator, reader aoaio.Reader) (*detectors.Result, error) {
	query, err := reader.Read()
	if err != nil {
		return nil, err
	}
	return est.Score(ctx, query)
}

// scoreStream scores rows as they are read, one at a time.
func scoreStream(ctx context.Context, est *aoa.Estimator, reader aoaio.StreamReader) (*detectors.Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	rows, err := reader.Stream(gctx)
	if err != nil {
		return nil, err
	}

	scores := make(chan detectors.Score, 100)
	g.Go(func() error {
		defer close(scores)
		return est.ScoreStream(gctx, rows, scores)
	})

	var collected []detectors.Score
	for s := range scores {
		collected = append(collected, s)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}

	result := detectors.NewResult(len(collected))
	for i, s := range collected {
		result.Set(i, s)
	}
	return result, nil
}

func loadEstimator(path string) (*aoa.Estimator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read model %s", path)
	}
	est := aoa.New()
	if err := est.Load(data); err != nil {
		return nil, eris.Wrapf(err, "load model %s", path)
	}
	return est, nil
}

func init() {
	scoreCmd.Flags().String("model", "", "fitted estimator written by fit")
	scoreCmd.Flags().String("query", "", "query samples (.csv)")
	scoreCmd.Flags().String("out", "-", "output CSV, - for stdout")
	scoreCmd.Flags().Bool("stream", false, "score rows one at a time while reading")
	rootCmd.AddCommand(scoreCmd)
}
