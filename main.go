package main

import (
	"fmt"
	"io"
	"os"

	"github.com/campusconnect/campusconnect/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfg     *config.Config
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:           "campusconnect",
	Short:         "CampusConnect marketplace price advisor",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnvFile()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		return setupLogging(&cfg.App)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(seedCmd)
}

func setupLogging(app *config.AppConfig) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if app.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// JOURNAL_STREAM is set by systemd, which already captures stderr.
	_, underSystemd := os.LookupEnv("JOURNAL_STREAM")
	if underSystemd || !app.IsDevelopment() || app.LogFile == "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	}

	f, err := os.OpenFile(app.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	fileWriter := zerolog.ConsoleWriter{Out: f, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

	log.Info().Str("logFile", app.LogFile).Msg("logging to file")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
