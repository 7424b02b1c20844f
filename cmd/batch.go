package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/leadsheet"
	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	batchIn          string
	batchOut         string
	batchConcurrency int
	batchLimit       int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Fill opening lines for every lead in a CSV or XLSX sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}
		out := batchOut
		if out == "" {
			out = defaultBatchOutput(batchIn)
		}
		// Fail on a bad output extension before spending any crawl budget.
		if _, err := leadsheet.FormatOf(out); err != nil {
			return err
		}

		sheet, err := leadsheet.Read(batchIn)
		if err != nil {
			return eris.Wrap(err, "read leads")
		}

		lim := newLimiter(cfg.Batch.RatePerSec)
		env, err := initPipeline(ctx, config.ModeBatch, lim)
		if err != nil {
			return err
		}
		defer env.Close()

		var leads leadUpserter
		if env.Store != nil {
			leads = env.Store
		}

		if err := processBatch(ctx, sheet, batchOptions{
			Concurrency: cfg.Batch.Concurrency,
			Limit:       batchLimit,
			Limiter:     lim,
		}, env.Pipeline.Run, leads); err != nil {
			return err
		}

		if err := leadsheet.Write(out, sheet); err != nil {
			return eris.Wrap(err, "write leads")
		}
		zap.L().Info("batch output written", zap.String("path", out), zap.Int("rows", sheet.Len()))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchIn, "in", "", "input lead sheet (.csv or .xlsx, required)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output path (default <in>_punchlines.<ext>)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent rows (default from config)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max rows to process, 0 for all")
	_ = batchCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(batchCmd)
}

// runFunc is the callback signature for running the pipeline on one target.
type runFunc func(ctx context.Context, url, company string, kinds ...model.Category) (*model.Result, error)

// leadUpserter persists processed leads.
type leadUpserter interface {
	UpsertLead(ctx context.Context, lead model.Lead) (string, error)
}

type batchOptions struct {
	Concurrency int
	Limit       int
	Limiter     *rate.Limiter // may be nil
}

// processBatch runs the pipeline over every row with a website and fills the
// output columns in place. Rows without a website, and rows whose run failed,
// get the fallback line. Rows past Limit are left untouched.
func processBatch(ctx context.Context, sheet *leadsheet.Sheet, opts batchOptions, run runFunc, leads leadUpserter) error {
	sheet.EnsureOutputColumns()

	n := sheet.Len()
	if opts.Limit > 0 && n > opts.Limit {
		n = opts.Limit
	}
	if n == 0 {
		zap.L().Info("no leads to process")
		return nil
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("rows", n),
		zap.Int("concurrency", concurrency),
	)

	results := make([]*model.Result, n)
	var succeeded, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range n {
		target := sheet.Target(i)
		if strings.TrimSpace(target.URL) == "" {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			log := zap.L().With(zap.Int("row", i+1), zap.String("url", target.URL))

			if opts.Limiter != nil {
				if err := opts.Limiter.Wait(gctx); err != nil {
					return eris.Wrap(err, "batch: rate limit wait")
				}
			}

			res, err := run(gctx, target.URL, target.Company)
			if err != nil {
				if gctx.Err() != nil {
					return eris.Wrap(gctx.Err(), "batch: cancelled")
				}
				failed.Add(1)
				log.Error("pipeline run failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			results[i] = res
			succeeded.Add(1)
			log.Info("row complete",
				zap.String("path", string(res.Path)),
				zap.String("best", res.Best()),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	for i := range n {
		sheet.Fill(i, results[i])
		if leads == nil {
			continue
		}
		lead := sheet.Lead(i)
		lead.Punchline = results[i].Best()
		lead.ScrapePath = model.CrawlPath(sheet.Get(i, leadsheet.ColScrapePath))
		if _, err := leads.UpsertLead(ctx, lead); err != nil {
			zap.L().Debug("lead not stored", zap.Int("row", i+1), zap.Error(err))
		}
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("skipped", skipped.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

// defaultBatchOutput derives the output path from the input path.
func defaultBatchOutput(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "_punchlines" + ext
}
