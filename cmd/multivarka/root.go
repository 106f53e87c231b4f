package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/internal/config"
	"github.com/Victoria-Vladimirova/webdev-tasks-2/internal/logger"
	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// cli holds the global flags and the configuration resolved from them
type cli struct {
	serverFlag  string
	timeoutFlag time.Duration
	debugFlag   string
	verbose     bool
	configPath  string

	cfg    *config.Config
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "multivarka",
		Short: "Query document stores with a chained DSL",
		Long: `Multivarka runs find, insert, update and remove against MongoDB,
PostgreSQL (JSONB tables) or an in-process store, chosen by the server
address scheme.

Conditions are given as --where field:op:value, where op is eq, lt, gt or in,
optionally prefixed with "not." (for example group:not.eq:CS-301).`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.stderr = cmd.ErrOrStderr()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.serverFlag, "server", "s", "", "server address, e.g. mongodb://localhost/school (overrides "+config.EnvAddress+")")
	flags.DurationVar(&c.timeoutFlag, "timeout", 0, "deadline for each action (0 disables)")
	flags.StringVar(&c.debugFlag, "debug", "", "debug output: off, query or trace")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&c.configPath, "config", "", "config file (default ./"+config.FileName+")")

	root.AddCommand(
		c.newFindCmd(),
		c.newInsertCmd(),
		c.newUpdateCmd(),
		c.newRemoveCmd(),
		c.newDriversCmd(),
		c.newVersionCmd(),
		c.newConfigCmd(),
	)
	return root
}

// config resolves flags over environment over file over defaults.
// The result is cached for the lifetime of the command.
func (c *cli) config(cmd *cobra.Command) (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.NewFileLoader(c.configPath).Load()
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", wdErr)
		}
		cfg, err = config.NewLoader(wd).LoadOrDefault()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server.Address = c.serverFlag
		cfg.AddressSource = config.SourceFlag
	}
	if flags.Changed("timeout") {
		cfg.Server.Timeout = c.timeoutFlag
	}
	if flags.Changed("debug") {
		cfg.Debug.Level = c.debugFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if c.verbose {
		logCfg.Level = "debug"
	}
	logger.Init(logCfg)

	if c.verbose {
		c.printInfo("Using %s (from %s)", multivarka.RedactAddress(cfg.Server.Address), cfg.AddressSource)
	}

	c.cfg = cfg
	return cfg, nil
}

// newServer starts the DSL for the configured address. Debug output goes to
// stderr so that results on stdout stay parseable.
func (c *cli) newServer(cfg *config.Config) *multivarka.QueryBuilder {
	return multivarka.Server(cfg.Server.Address,
		multivarka.WithLogger(logger.Get()),
		multivarka.WithDebugContext(&multivarka.DebugContext{
			Level:       cfg.DebugLevel(),
			Writer:      c.stderr,
			ColorOutput: isTerminal(c.stderr),
		}),
	)
}

// actionContext applies the configured timeout to ctx
func actionContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Server.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Server.Timeout)
	}
	return context.WithCancel(ctx)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *cli) printInfo(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprint(c.stderr, "→ ")
	fmt.Fprintf(c.stderr, format+"\n", args...)
}

func (c *cli) printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprint(c.stderr, "✓ ")
	fmt.Fprintf(c.stderr, format+"\n", args...)
}

func (c *cli) printWarning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprint(c.stderr, "! ")
	fmt.Fprintf(c.stderr, format+"\n", args...)
}
