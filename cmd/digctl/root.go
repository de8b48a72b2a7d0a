package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/digkit/internal/config"
	"github.com/joshuapare/digkit/internal/logger"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	configPath  string
	recordSize  int
	charsetName string

	// cfg is the configuration in effect, set before any command runs.
	cfg = config.Default()

	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "digctl",
	Short: "Excavate nested artifacts from binary images",
	Long: `digctl maps a binary image (a disk, tape or memory dump), offers it to
the configured examiners, and keeps carving until every byte is either
explained by an examiner or reported as a gap.

Configuration is read from --config, or from the file named by
DIGKIT_CONFIG when the flag is absent.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = closeLog() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a digkit.yaml file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().
		IntVar(&recordSize, "records", 0, "Register fixed-size geometry records (sector size)")
	rootCmd.PersistentFlags().
		StringVar(&charsetName, "charset", "", "Character table for top-level images")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides and starts the
// logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	if recordSize != 0 {
		loaded.Excavation.RecordSize = recordSize
	}
	if charsetName != "" {
		loaded.Excavation.Charset = charsetName
	}
	switch {
	case quiet:
		loaded.Log.Level = "error"
	case verbose:
		loaded.Log.Level = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	level, _ := loaded.LogLevel()
	closeFn, err := logger.Init(logger.Options{
		Level:  level,
		Format: loaded.Log.Format,
		File:   loaded.Log.File,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	cfg, closeLog = loaded, closeFn
	return nil
}

func loadConfig() (*config.Config, error) {
	switch {
	case configPath != "":
		return config.LoadFile(configPath)
	case os.Getenv(config.EnvVar) != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(w io.Writer, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(w, format, args...)
	}
}
