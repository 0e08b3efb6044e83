package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/blocksim/blocksim/log"
	"github.com/blocksim/blocksim/simerr"
	"github.com/blocksim/blocksim/world"
)

var logger = log.NewModuleLogger(log.ModuleCLI)

var (
	inputDirFlag = cli.StringFlag{
		Name:  "input-dir",
		Usage: "directory holding config.json, factory.json, latency.json, throughput-{received,sent}.json and delays.json",
		Value: "./input-parameters",
	}
	outputFlag = cli.StringFlag{
		Name:  "output",
		Usage: "file to write the observability record to (stdout if unset)",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "seed for the run's pseudo-random number generator",
		Value: 1,
	}
	kafkaBrokersFlag = cli.StringFlag{
		Name:  "kafka-brokers",
		Usage: "comma-separated Kafka brokers to publish domain events to (optional)",
	}
	kafkaTopicFlag = cli.StringFlag{
		Name:  "kafka-topic",
		Usage: "Kafka topic to publish domain events to",
		Value: "blocksim-events",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "blocksim"
	app.Usage = "discrete-event simulator for Bitcoin/Ethereum-like P2P blockchain networks"
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run a simulation from the configured input parameters and print the observability record",
			Flags:  []cli.Flag{inputDirFlag, outputFlag, seedFlag, kafkaBrokersFlag, kafkaTopicFlag},
			Action: runCommand,
		},
	}
	return app
}

func runCommand(ctx *cli.Context) error {
	inputDir := ctx.String(inputDirFlag.Name)
	files := world.DefaultInputFiles(inputDir)

	w, err := world.Build(files, ctx.Int64(seedFlag.Name), 0)
	if err != nil {
		logger.Errorw("failed to build simulation", "err", err)
		return cli.NewExitError(err.Error(), exitCodeFor(err))
	}

	if brokers := ctx.String(kafkaBrokersFlag.Name); brokers != "" {
		if err := w.EnableEventBus(strings.Split(brokers, ","), ctx.String(kafkaTopicFlag.Name)); err != nil {
			logger.Errorw("failed to connect to kafka, continuing without an eventbus", "err", err)
		}
	}

	w.Recorder.MarkStart(time.Now().UTC().Format(time.RFC3339))
	record := w.Run()
	w.Recorder.MarkEnd(time.Now().UTC().Format(time.RFC3339))

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if path := ctx.String(outputFlag.Name); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		logger.Infow("wrote observability record", "path", path)
		return nil
	}

	fmt.Println(string(out))
	return nil
}

// exitCodeFor gives a ConfigError its own exit code (2) so a caller's
// scripting can distinguish bad input from any other failure.
func exitCodeFor(err error) int {
	if _, ok := err.(*simerr.ConfigError); ok {
		return 2
	}
	return 1
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
