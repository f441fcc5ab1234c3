package main

import (
	"fmt"
	"os"

	"github.com/manas360/stepwise/internal/cli"
	"github.com/manas360/stepwise/internal/config"
	"github.com/spf13/cobra"
)

// app carries the configuration resolved before any subcommand runs.
type app struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "stepwise",
		Short: "Stepwise runs structured therapeutic protocols step by step",
		Long: `Stepwise walks a patient through a standardized protocol one step at a time,
captures structured answers and stores one immutable record per completed session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	flags.String("protocols", "", "Directory of protocol documents (default: built-in protocols)")
	flags.String("store", "", "Record store driver: memory, file, redis or sqlite")
	flags.String("store-path", "", "Records directory (file) or database file (sqlite)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newRunCmd(a),
		newProtocolsCmd(a),
		newValidateCmd(a),
		newSessionsCmd(a),
		newReportCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"protocols", &cfg.ProtocolsDir},
		{"store", &cfg.Store.Driver},
		{"store-path", &cfg.Store.Path},
		{"log-level", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.dst, _ = cmd.Flags().GetString(o.flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) runtime() (*cli.Runtime, error) {
	logger, err := cli.NewLogger(a.cfg.Log)
	if err != nil {
		return nil, err
	}
	return cli.NewRuntime(a.cfg, logger)
}
