// Package cli implements the tso500ctdna command: local handler
// invocation, the HTTP API and draft store fixtures.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/config"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
)

var (
	flagConfig    string
	flagServer    string
	flagDraftDB   string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
)

// defaultServer returns the remote server URL from TSO500CTDNA_SERVER, if set.
func defaultServer() string {
	return os.Getenv("TSO500CTDNA_SERVER")
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tso500ctdna",
		Short: "dragen-tso500-ctdna pipeline manager",
		Long: "Runs the dragen-tso500-ctdna event handlers: state change conversion, " +
			"payload merging, payload validation and run comments.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if flagDraftDB != "" {
				loaded.DraftDBPath = flagDraftDB
			}
			if cmd.Flags().Changed("log-level") {
				loaded.LogLevel = flagLogLevel
			}
			if cmd.Flags().Changed("log-format") {
				loaded.LogFormat = flagLogFormat
			}
			if flagDebug {
				loaded.LogLevel = "debug"
			}
			cfg = loaded
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Invoke handlers on a remote server instead of locally (or TSO500CTDNA_SERVER env)")
	root.PersistentFlags().StringVar(&flagDraftDB, "draft-db", "", "SQLite draft store path; replaces the workflow manager API")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newInvokeCmd(),
		newHandlersCmd(),
		newServeCmd(),
		newSeedCmd(),
	)

	return root
}
