// Package cli implements the leadscore command tree: the HTTP service, one-shot
// batch scoring, schema migrations and subscription management.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/leadscore/internal/app"
	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	ConfigPath   string
	Logger       logging.Logger
	OutputFormat string
}

// NewRootCommand creates the root command with all subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.Options{})
}

// newRootCommand lets tests replace the external collaborators of the
// pipeline built by serve and score.
func newRootCommand(overrides app.Options) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "leadscore",
		Short: "Batch lead scoring through an AI assistant",
		Long: "leadscore reads batches of marketing leads from object storage, scores each\n" +
			"lead with the subscription's assistant and posts the results to the batch callback.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipInitAnnotation] == "true" {
				return nil
			}
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: LEADSCORE_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newServeCmd(overrides),
		newScoreCmd(overrides),
		newMigrateCmd(),
		newSubscriptionCmd(),
		newVersionCmd(),
	)
	return cmd
}

const skipInitAnnotation = "leadscore/skip-init"

// persistentPreRun loads the configuration and the logger and stores the
// CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	if opts.NoColor {
		color.NoColor = true
	}
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json":
	default:
		return errors.InputError(fmt.Sprintf("invalid output format %q (must be text|json)", opts.OutputFormat))
	}

	cfg, err := config.LoadOrEnv(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.LogLevel)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)

	cliCtx := &CLIContext{
		Config:       cfg,
		ConfigPath:   opts.ConfigPath,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initLogger writes to the configured output, stderr by default so command
// results on stdout stay parseable.
func initLogger(cfg *config.Config) (logging.Logger, error) {
	out := []string{"stderr"}
	if cfg.Log.Output != "" {
		out = []string{cfg.Log.Output}
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      out,
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipInitAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "leadscore %s\n  commit: %s\n  built:  %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 3 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

//Personal.AI order the ending
