package main

import (
	"runtime"

	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML configuration file; flags override its values",
	}

	outputFlag = &cli.StringFlag{
		Name:  "output",
		Usage: "Directory the generated fixtures are written to",
	}

	flatFlag = &cli.BoolFlag{
		Name:  "flat",
		Usage: "Write fixtures directly into the output directory instead of per-test subdirectories",
	}

	t8nFlag = &cli.StringFlag{
		Name:  "t8n",
		Usage: "Path of the state transition executable",
	}

	solcFlag = &cli.StringFlag{
		Name:  "solc",
		Usage: "Path of the contract compiler executable",
	}

	forkFlag = &cli.StringFlag{
		Name:  "fork",
		Usage: "Fill only this fork (London, Merge, Shanghai, etc)",
	}

	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "Lower bound of the fork range to fill",
	}

	untilFlag = &cli.StringFlag{
		Name:  "until",
		Usage: "Upper bound of the fork range to fill",
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of instances filled concurrently (default = NUMCPU)",
		Value: runtime.NumCPU(),
	}

	stopOnFailureFlag = &cli.BoolFlag{
		Name:  "stop-on-failure",
		Usage: "Cancel the run at the first failed or errored instance",
	}

	chainIDFlag = &cli.Uint64Flag{
		Name:  "chainid",
		Usage: "Chain id placed into every transition request",
	}

	timeoutFlag = &cli.IntFlag{
		Name:  "timeout",
		Usage: "Per-transition timeout in seconds",
	}

	streamFlag = &cli.BoolFlag{
		Name:  "stream",
		Usage: "Keep one transition tool process per worker instead of spawning per call",
	}

	traceFlag = &cli.StringFlag{
		Name:  "trace",
		Usage: "Directory receiving a request/response JSON pair per tool invocation",
	}

	logDirFlag = &cli.StringFlag{
		Name:  "logdir",
		Usage: "Directory receiving the run log file",
	}

	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug",
		Value: 3,
	}
)
