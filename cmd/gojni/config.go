package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daimatz/gojni/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gojni.toml",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		// The file named by --config need not exist yet.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.FileName
			}
			if err := config.WriteFile(path, config.Default(), force); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "replace an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if a.cfgPath != "" {
				fmt.Fprintf(out, "# loaded from %s\n", a.cfgPath)
			}
			if err := config.Write(out, a.cfg); err != nil {
				return err
			}
			if jmod := a.cfg.JmodPath(); jmod != "" {
				fmt.Fprintf(out, "# java.base.jmod: %s\n", jmod)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
