package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"fixturefill/compiler"
	"fixturefill/config"
	"fixturefill/filler"
	"fixturefill/fixture"
	"fixturefill/t8n"
	"fixturefill/testcase"
	"fixturefill/utils"
)

var app = initApp()

func initApp() *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "Fill conformance test cases into executable fixtures"
	app.ArgsUsage = "<test-case-file-or-directory>..."
	app.Flags = []cli.Flag{
		configFlag,
		outputFlag,
		flatFlag,
		t8nFlag,
		solcFlag,
		forkFlag,
		fromFlag,
		untilFlag,
		workersFlag,
		stopOnFailureFlag,
		chainIDFlag,
		timeoutFlag,
		streamFlag,
		traceFlag,
		logDirFlag,
		verbosityFlag,
	}
	app.Action = fill
	return app
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fill(ctx *cli.Context) error {
	loglevel := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, loglevel, true)))

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return fmt.Errorf("no test case paths given")
	}

	cases, err := testcase.LoadPaths(ctx.Args().Slice())
	if err != nil {
		return err
	}
	log.Info("Loaded test cases", "count", len(cases), "output", cfg.Output.Directory)

	sink, err := fixture.NewDirectorySink(cfg.Output.Directory, cfg.Output.Flat)
	if err != nil {
		return err
	}

	toolOpts := t8n.Options{
		Timeout:  time.Duration(cfg.Tools.Timeout) * time.Second,
		Args:     cfg.Tools.TransitionArgs,
		TraceDir: cfg.Run.TraceDir,
	}
	factory := func() (t8n.Client, error) {
		if cfg.Tools.Stream {
			return t8n.NewSessionClient(cfg.Tools.Transition, toolOpts)
		}
		return t8n.NewExecClient(cfg.Tools.Transition, toolOpts)
	}

	orchestrator := filler.New(factory, compiler.New(cfg.Tools.Compiler), sink, filler.Options{
		Workers:       cfg.Run.Workers,
		StopOnFailure: cfg.Run.StopOnFailure,
		ChainID:       cfg.Run.ChainID,
		Filter:        forkFilter(cfg),
	})

	summary, err := orchestrator.Run(ctx.Context, cases)
	if err != nil {
		return err
	}
	if dir := cfg.Logging.Directory; dir != "" {
		if err := writeRunLog(dir, summary); err != nil {
			log.Warn("Failed to write run log", "err", err)
		}
	}
	if !summary.OK() {
		return fmt.Errorf("%d of %d instances errored", summary.Errored, len(summary.Results))
	}
	if summary.Failed > 0 {
		log.Warn("Validation failures", "failed", summary.Failed)
	}
	return nil
}

// loadConfig merges the optional config file with the command line; flags
// win over the file, the file wins over the defaults.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet(outputFlag.Name) {
		cfg.Output.Directory = ctx.String(outputFlag.Name)
	}
	if ctx.IsSet(flatFlag.Name) {
		cfg.Output.Flat = ctx.Bool(flatFlag.Name)
	}
	if ctx.IsSet(t8nFlag.Name) {
		cfg.Tools.Transition = ctx.String(t8nFlag.Name)
	}
	if ctx.IsSet(solcFlag.Name) {
		cfg.Tools.Compiler = ctx.String(solcFlag.Name)
	}
	if ctx.IsSet(forkFlag.Name) {
		cfg.Forks.From = ctx.String(forkFlag.Name)
		cfg.Forks.Until = ctx.String(forkFlag.Name)
	}
	if ctx.IsSet(fromFlag.Name) {
		cfg.Forks.From = ctx.String(fromFlag.Name)
	}
	if ctx.IsSet(untilFlag.Name) {
		cfg.Forks.Until = ctx.String(untilFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Run.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(stopOnFailureFlag.Name) {
		cfg.Run.StopOnFailure = ctx.Bool(stopOnFailureFlag.Name)
	}
	if ctx.IsSet(chainIDFlag.Name) {
		cfg.Run.ChainID = ctx.Uint64(chainIDFlag.Name)
	}
	if ctx.IsSet(timeoutFlag.Name) {
		cfg.Tools.Timeout = ctx.Int(timeoutFlag.Name)
	}
	if ctx.IsSet(streamFlag.Name) {
		cfg.Tools.Stream = ctx.Bool(streamFlag.Name)
	}
	if ctx.IsSet(traceFlag.Name) {
		cfg.Run.TraceDir = ctx.String(traceFlag.Name)
	}
	if ctx.IsSet(logDirFlag.Name) {
		cfg.Logging.Directory = ctx.String(logDirFlag.Name)
	}
	return cfg, cfg.Validate()
}

func forkFilter(cfg *config.Config) *filler.ForkFilter {
	if cfg.Forks.From == "" && cfg.Forks.Until == "" {
		return nil
	}
	return &filler.ForkFilter{From: cfg.Forks.From, Until: cfg.Forks.Until}
}

// writeRunLog records the per-instance verdicts in a timestamped file, one
// line per instance plus the failure reports.
func writeRunLog(dir string, summary *filler.RunSummary) error {
	logger, err := utils.NewLogger(dir)
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Info("run summary: %d passed, %d failed, %d errored", summary.Passed, summary.Failed, summary.Errored)
	for _, r := range summary.Results {
		switch r.Status {
		case filler.StatusPassed:
			logger.Info("%s: passed", r.FixtureID)
		case filler.StatusFailed:
			logger.Warn("%s: failed\n%s", r.FixtureID, r.Outcome.Report())
		case filler.StatusErrored:
			logger.Error("%s: errored: %v", r.FixtureID, r.Err)
		}
	}
	return nil
}
