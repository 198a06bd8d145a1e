package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shark-globe/internal/pipeline"
	"github.com/sells-group/shark-globe/internal/viz"
)

var (
	runSink            string
	runDryRun          bool
	runSkipUnknownTime bool
	runReport          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Emit every configured layer and dataset to the sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("sink") {
			cfg.Sink.Driver = runSink
		}
		if runDryRun {
			cfg.Sink.Driver = viz.DriverMemory
		}
		if cmd.Flags().Changed("skip-unknown-time") {
			cfg.Emit.SkipUnknownTime = runSkipUnknownTime
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		sink, err := viz.Open(ctx, pipeline.SinkOptions(cfg.Sink))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := sink.Close(); cerr != nil {
				zap.L().Error("close sink", zap.Error(cerr))
			}
		}()

		report, err := pipeline.New(cfg, sink).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		var emitted int
		for _, d := range report.Datasets {
			emitted += d.Emitted
		}
		zap.L().Info("run complete",
			zap.String("sink", cfg.Sink.Driver),
			zap.Int("layers", len(report.Layers)),
			zap.Int("datasets", len(report.Datasets)),
			zap.Int("emitted", emitted),
		)

		if !runReport {
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().StringVar(&runSink, "sink", "", "sink driver: websocket, sqlite or memory (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "read and project everything but emit to an in-memory sink")
	runCmd.Flags().BoolVar(&runSkipUnknownTime, "skip-unknown-time", false, "drop records whose date is invalid")
	runCmd.Flags().BoolVar(&runReport, "report", false, "print the run report as JSON to stdout")
	rootCmd.AddCommand(runCmd)
}
