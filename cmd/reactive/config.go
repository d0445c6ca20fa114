package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/internal/errors"
)

func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage reactive.json",
		Long: `Create, inspect and check the project configuration.

The configuration is read from --config when given, otherwise from the
nearest reactive.json, reactive.yaml or reactive.yml above the working
directory.`,
	}

	cmd.AddCommand(
		configInitCmd(),
		configShowCmd(opts),
		configValidateCmd(opts),
	)
	return cmd
}

func configInitCmd() *cobra.Command {
	var (
		asYAML bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a configuration file with default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runConfigInit(cmd, dir, asYAML, force)
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write reactive.yaml instead of reactive.json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")

	return cmd
}

func runConfigInit(cmd *cobra.Command, dir string, asYAML, force bool) error {
	if config.Exists(dir) && !force {
		return errors.New("E141").WithDetail("A configuration file already exists in " + dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New("E124").Wrap(err)
	}

	name := config.ConfigFileName
	if asYAML {
		name = "reactive.yaml"
	}
	path := filepath.Join(dir, name)

	if err := config.New().SaveTo(path); err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Created %s", path)
	return nil
}

func configShowCmd(opts *globalOptions) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and command-line overrides
have been applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.readConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal(asYAML)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print YAML instead of JSON")

	return cmd
}

func configValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.readConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cfg.Path() == "" {
				warn(w, "No configuration file found, defaults are valid")
				return nil
			}
			success(w, "%s is valid", cfg.Path())
			return nil
		},
	}
}
