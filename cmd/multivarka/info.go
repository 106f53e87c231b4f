package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Victoria-Vladimirova/webdev-tasks-2/internal/config"
	"github.com/Victoria-Vladimirova/webdev-tasks-2/pkg/multivarka"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

func (c *cli) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show Multivarka version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Multivarka v%s\n", version)

			if c.verbose {
				fmt.Fprintln(out, "\nComponents:")
				fmt.Fprintf(out, "  Go:      %s\n", runtime.Version())
				fmt.Fprintf(out, "  Drivers: %s\n", strings.Join(multivarka.Drivers(), ", "))
			}
		},
	}
}

func (c *cli) newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the address schemes with a registered driver",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, scheme := range multivarka.Drivers() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s://\n", scheme)
			}
		},
	}
}

func (c *cli) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after applying, in order of precedence,
command-line flags, the ` + config.EnvAddress + ` environment variable,
the config file and the built-in defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config(cmd)
			if err != nil {
				return err
			}

			shown := *cfg
			shown.Server.Address = multivarka.RedactAddress(cfg.Server.Address)
			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# server.address from %s\n", cfg.AddressSource)
			_, err = out.Write(data)
			return err
		},
	}
	cmd.AddCommand(c.newConfigInitCmd())
	return cmd
}

func (c *cli) newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter " + config.FileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			path := filepath.Join(dir, config.FileName)

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			c.printSuccess("Created %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
