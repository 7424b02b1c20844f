package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	runURL     string
	runCompany string
	runK       int
	runKinds   []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate ranked opening lines for a single website",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runK > 0 {
			cfg.Punchline.K = runK
		}

		env, err := initPipeline(ctx, config.ModeRun, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, runURL, runCompany, model.ParseCategories(runKinds)...)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("url", result.URL),
			zap.String("path", string(result.Path)),
			zap.Int("evidence", len(result.Evidence)),
			zap.String("best", result.Best()),
		)

		return writeResult(os.Stdout, result)
	},
}

// writeResult prints a result as indented JSON.
func writeResult(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "target website URL (required)")
	runCmd.Flags().StringVar(&runCompany, "company", "", "company name (derived from the domain when empty)")
	runCmd.Flags().IntVar(&runK, "k", 0, "number of lines to return (default from config)")
	runCmd.Flags().StringSliceVar(&runKinds, "kinds", nil, "evidence categories to draw on, e.g. news,cases")
	_ = runCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(runCmd)
}
