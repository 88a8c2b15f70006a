package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"

	"dataset-convertor/controller"
	"dataset-convertor/services/ingest"
	"dataset-convertor/utils"
)

func main() {
	// ── Environment + CLI flags ──────────────────────────────────────
	rt, err := utils.LoadRuntimeEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	configPath := flag.String("config", rt.ConfigPath, "path to the sensor configuration yaml")
	logLevel := flag.String("log-level", rt.LogLevel, "minimum log level (debug, info, warn, error)")
	logFile := flag.String("log", rt.LogFile, "optional log file path (stdout is always included)")
	metricsFile := flag.String("metrics-file", rt.MetricsFile, "optional prometheus textfile written at the end of the run")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] /absolute/path/to/file.bag\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	lvl, err := utils.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// ── Logger ───────────────────────────────────────────────────────
	logger := utils.InitLogger(lvl, *logFile)

	runID := uuid.NewString()
	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  Dataset-Convertor  ·  bag → csv + images")
	utils.L().Info("  GOMAXPROCS=%d  ·  PID=%d  ·  run=%s", runtime.GOMAXPROCS(0), os.Getpid(), runID)
	utils.L().Info("═══════════════════════════════════════════════════")

	err = run(flag.Arg(0), *configPath, *metricsFile, runID)
	if err != nil {
		utils.L().Error("FAIL! %v", err)
	}
	logger.Close()
	os.Exit(exitCode(err))
}

// exitCode maps a run result to the process status. Usage errors exit 2
// before a run starts.
func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func run(bagPath, configPath, metricsFile, runID string) error {
	outRoot, err := utils.DatasetDir(bagPath)
	if err != nil {
		return err
	}
	params, err := utils.LoadParamFile(configPath)
	if err != nil {
		return err
	}
	utils.L().Info("sensor config  %s", params.Path())

	utils.L().Info("opening bag  %s", bagPath)
	bag, err := ingest.OpenBag(bagPath)
	if err != nil {
		return err
	}
	defer bag.Close()

	metrics := controller.NewConversionMetrics(runID)
	driver := controller.NewConversionDriver(controller.DriverConfig{
		Params:      params,
		OutputRoot:  outRoot,
		Source:      bag,
		DecodeImage: ingest.DecodePixels,
		Progress:    controller.ConsoleProgress(os.Stdout),
		Metrics:     metrics,
	})
	runErr := driver.Run()

	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			utils.L().Warn("write metrics %s: %v", metricsFile, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Println("\n✓ Dataset-Convertor finished. Dataset at:", outRoot)
	return nil
}
