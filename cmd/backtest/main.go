package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-engine/internal/backtest"
	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/sweep"
	"github.com/rxtech-lab/argo-engine/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func loadRunner(cmd *cli.Command) (*backtest.Runner, *logger.Logger, error) {
	content, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := backtest.LoadConfig(content)
	if err != nil {
		return nil, nil, err
	}

	if mode := cmd.String("mode"); mode != "" {
		config.Mode = engine.Mode(mode)
	}

	if folder := cmd.String("results"); folder != "" {
		config.ResultsFolder = folder
	}

	level := config.LogLevel
	if cmd.Bool("verbose") {
		level = "debug"
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	runner, err := backtest.NewRunner(config, log)
	if err != nil {
		return nil, log, err
	}

	return runner, log, nil
}

// runAction runs the configured graph once, showing a progress bar over the
// master ticks.
func runAction(ctx context.Context, cmd *cli.Command) error {
	runner, log, err := loadRunner(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	var bar *progressbar.ProgressBar

	onTick := backtest.OnTickCallback(func(_ string, tick engine.Tick, total int) {
		if bar == nil {
			if total <= 0 {
				total = -1
			}

			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(fmt.Sprintf("Running %s", runner.Config().Mode)),
				progressbar.OptionShowCount(),
			)
		}

		_ = bar.Add(1)
	})

	onRunEnd := backtest.OnRunEndCallback(func(runID string, result *engine.Result, folder string, err error) {
		if bar != nil {
			_ = bar.Finish()
		}

		if err != nil {
			log.Error("Run failed", zap.String("run_id", runID), zap.Error(err))

			return
		}

		log.Info("Run complete",
			zap.String("run_id", runID),
			zap.Int("ticks", len(result.Timeline)),
			zap.Int("faults", len(result.Faults)),
			zap.Int("intents", len(result.Intents)),
			zap.String("results", folder),
		)
	})

	_, err = runner.Run(ctx, backtest.LifecycleCallbacks{
		OnSweepStart: nil,
		OnSweepEnd:   nil,
		OnRunStart:   nil,
		OnRunEnd:     &onRunEnd,
		OnTick:       &onTick,
	})

	return err
}

// sweepAction runs one graph per point of the configured parameter grid.
func sweepAction(ctx context.Context, cmd *cli.Command) error {
	runner, log, err := loadRunner(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	var bar *progressbar.ProgressBar

	onSweepStart := backtest.OnSweepStartCallback(func(total int) error {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Sweeping"),
			progressbar.OptionShowCount(),
		)

		return nil
	})

	onRunEnd := backtest.OnRunEndCallback(func(runID string, _ *engine.Result, _ string, err error) {
		if err != nil {
			log.Warn("Sweep run failed", zap.String("run_id", runID), zap.Error(err))
		}

		_ = bar.Add(1)
	})

	outcomes, err := runner.Sweep(ctx, backtest.LifecycleCallbacks{
		OnSweepStart: &onSweepStart,
		OnSweepEnd:   nil,
		OnRunStart:   nil,
		OnRunEnd:     &onRunEnd,
		OnTick:       nil,
	})
	if err != nil {
		return err
	}

	report(outcomes)

	return nil
}

func report(outcomes []sweep.Outcome) {
	fmt.Println()

	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
		}

		intents := 0
		if o.Result != nil {
			intents = len(o.Result.Intents)
		}

		fmt.Printf("%-36s  %-40s  intents=%-5d  %s  %s\n", o.Job.RunID, o.Job.Params, intents, o.Elapsed, status)
	}
}

func main() {
	configFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the run configuration `FILE`",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "mode",
			Aliases:  []string{"m"},
			Usage:    fmt.Sprintf("Override the evaluation mode (%s, %s)", engine.ModeBatch, engine.ModeIncremental),
			Required: false,
		},
		&cli.StringFlag{
			Name:     "results",
			Aliases:  []string{"r"},
			Usage:    "Override the results folder",
			Required: false,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log at debug level",
		},
	}

	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Evaluate indicator and strategy graphs over historical bars",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the configured graph once",
				Flags:  configFlags,
				Action: runAction,
			},
			{
				Name:   "sweep",
				Usage:  "Run the configured graph once per sweep parameter combination",
				Flags:  configFlags,
				Action: sweepAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
