package main

import (
	"fmt"
	"os"

	"pubtools/pkg/config"
	"pubtools/pkg/logging"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	color      string
}

// load reads the config file and applies flag overrides.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = g.logFile
	}
	if flags.Changed("color") {
		cfg.Log.Color = g.color
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Color:  cfg.Log.Color,
		File:   cfg.Log.File,
		Output: os.Stderr,
	})
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	run := newRunCommand(g)

	rootCmd := &cobra.Command{
		Use:   "pubtools [root]",
		Short: "Compress and encrypt game assets for shipping",
		Long: `pubtools frames Lua scripts and JSON, plist and ExportJson data in an
LZ4 container, then encrypts them together with PNG and JPG images.
Lua scripts are replaced by .luac files; everything else is rewritten
in place.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return run.RunE(cmd, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Configuration file path")
	pf.StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "console", "Log format (console, json)")
	pf.StringVar(&g.logFile, "log-file", "", "Also append logs to this file")
	pf.StringVar(&g.color, "color", "auto", "Colorize console logs (auto, always, never)")

	// Bare "pubtools <root>" accepts the run flags too.
	rootCmd.Flags().AddFlagSet(run.Flags())

	rootCmd.AddCommand(run)
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newCheckCommand(g))
	rootCmd.AddCommand(newHistoryCommand(g))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pubtools %s\n", version)
		},
	})

	return rootCmd
}
