// Package cli implements the opinion command tree: one-shot annotation
// commands reading stdin, the TCP server, its client and the stream worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// processorVersion is written into the NAF header.
func processorVersion() string {
	return Version + "-" + GitCommit
}

type cliContextKey struct{}

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// CLIContext carries the loaded configuration and logger to subcommands.
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Logger     logging.Logger
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "opinion",
		Short: "Opinion annotation of NAF documents",
		Long: "opinion tags opinion targets, aspects and polarities in NAF documents.\n" +
			"It runs one-shot over stdin, as a TCP service, or as a Kafka stream worker.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./opinion.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format (json, console)")

	cmd.AddCommand(
		newTargetCmd(),
		newAspectCmd(),
		newPolarityCmd(),
		newABSACmd(),
		newServerCmd(),
		newClientCmd(),
		newWorkerCmd(),
		newLexiconCmd(),
		newModelCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, path, err := initConfig(opts)
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg, opts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "logger initialization failed")
	}
	logging.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &CLIContext{
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
	}))
	return nil
}

// initConfig loads the first config file found, or the environment and
// defaults when there is none.  The path of the file used is returned.
func initConfig(opts *RootOptions) (*config.Config, string, error) {
	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.ErrCodeValidation, "config initialization failed")
		}
		return cfg, opts.ConfigPath, nil
	}

	searchPaths := []string{"./opinion.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".opinion", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/opinion/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			cfg, err := config.Load(p)
			if err != nil {
				return nil, "", errors.Wrap(err, errors.ErrCodeValidation, "config initialization failed")
			}
			return cfg, p, nil
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeValidation, "config initialization failed")
	}
	return cfg, "", nil
}

// initLogger writes to stderr; stdout carries documents.
func initLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	logCfg := cfg.Log
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		logCfg.Format = opts.LogFormat
	}
	if !oneOf(logCfg.Level, config.ValidLogLevels) {
		return nil, fmt.Errorf("invalid log level %q", logCfg.Level)
	}
	if !oneOf(logCfg.Format, config.ValidLogFormats) {
		return nil, fmt.Errorf("invalid log format %q", logCfg.Format)
	}
	logCfg.OutputPaths = []string{"stderr"}
	logCfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Log = logCfg
	return logging.NewLogger(logCfg)
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the command tree with os.Args.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintError writes err to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
