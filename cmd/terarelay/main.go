package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "terarelay",
		Short:         "Relay TeraBox links sent to a Telegram bot back as uploaded files",
		SilenceUsage:  true,
	}
	root.AddCommand(newServeCommand(), newVersionCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay in webhook or poll mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = config.DefaultConfigPath
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultPath, "path to the TOML config file")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "intake mode override: webhook or poll")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "terarelay", version.GetInfo())
		},
	}
}

type serveOptions struct {
	configPath string
	mode       string
}

func loadConfig(opts serveOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.mode != "" {
		cfg.Telegram.Mode = opts.mode
		if err := config.Validate(cfg); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}
