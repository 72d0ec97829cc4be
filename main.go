package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pm25-timeseries/config"
	"pm25-timeseries/logger"
	"pm25-timeseries/utils"
)

var (
	sha1ver   string // sha1 revision used to build the program
	buildTime string // when the executable was built
	version   string // custom version number of the program
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pm25",
		Short:         "Clean and aggregate yearly PM2.5 measurement archives",
		Version:       fmt.Sprintf("%s - build on %s from sha1 %s", version, buildTime, sha1ver),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newIngestCommand(),
		newStatsCommand(),
		newCommonCommand(),
		newReportCommand(),
	)
	return root
}

// getEnvironment returns the configuration prefix given as first argument (defaults to PROD).
func getEnvironment(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return config.GetDefaultEnvironment()
}

// setup loads the configuration of the environment and opens the log file.
// The returned function logs the execution time and closes the log.
func setup(args []string) (config.Configuration, logger.Logger, func()) {
	timer := time.Now()
	environment := getEnvironment(args)
	configurations := config.GetConfig(environment)

	logFileLogger, err := logger.NewLogger(configurations.LOG_FILE, configurations.MAX_LOGFILE_SIZE)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging to stderr:", err)
	}
	if configurations.DEBUG_LOGGING {
		log.SetLevel(log.DebugLevel)
	}

	logFileLogger.Info("Using configurations from config files with prefix: " + environment)
	logFileLogger.Info("version = " + version)
	logFileLogger.Info("buildTime = " + buildTime)
	logFileLogger.Info("sha1Version = " + sha1ver)

	return configurations, logFileLogger, func() {
		utils.PrintMemUsage()
		logFileLogger.Info("Execution time: " + time.Since(timer).String())
		logFileLogger.Close()
	}
}
