package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the crawl cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired crawl cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModePrune); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		if st == nil {
			return eris.New("prune: no store configured")
		}
		defer st.Close()

		n, err := pruneCache(ctx, st)
		if err != nil {
			return err
		}
		zap.L().Info("crawl cache pruned", zap.Int("deleted", n))
		return nil
	},
}

// pruneCache removes expired crawl cache rows.
func pruneCache(ctx context.Context, c store.CrawlCache) (int, error) {
	if c == nil {
		return 0, eris.New("prune: no store configured")
	}
	n, err := c.DeleteExpiredCrawls(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "prune crawl cache")
	}
	return n, nil
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
