package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/daimatz/gojni/pkg/config"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	cfgPath string
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "gojni", Level: log.WarnLevel}),
	}
	root := &cobra.Command{
		Use:   "gojni",
		Short: "Run Java classes with native methods on a Go JVM",
		Long: `gojni runs Java class files on a virtual machine written in Go and binds
their native methods to Java_ symbols in shared objects or Go libraries.

Settings come from gojni.toml in the working directory, GOJNI_ environment
variables and command line flags, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "configuration file (default ./"+config.FileName+")")

	root.AddCommand(
		newRunCmd(a),
		newSymbolCmd(),
		newHeaderCmd(),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, path, err := config.Load(config.LoadOptions{Path: a.cfgFile})
	if err != nil {
		return err
	}
	a.cfg, a.cfgPath = cfg, path
	a.logger.SetLevel(cfg.Level())
	if path != "" {
		a.logger.Debug("loaded configuration", "path", path)
	}
	return nil
}
