package main

import (
	"fmt"

	"github.com/manas360/stepwise"
	"github.com/manas360/stepwise/internal/cli"
	"github.com/manas360/stepwise/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		patientName string
		patientID   string
		plain       bool
	)
	cmd := &cobra.Command{
		Use:   "run <protocol>",
		Short: "Run an interactive session",
		Long: `Starts a session of the given protocol and reads commands from stdin.
Type :help inside the session for the command list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			state, err := rt.Engine.Start(sigCtx, args[0], stepwise.Patient{ID: patientID, Name: patientName})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := []cli.RunnerOption{cli.WithLogger(rt.Logger)}
			interactive := !plain && tui.IsTerminal()
			if interactive {
				tui.PrintBanner(out, stepwise.Version)
				opts = append(opts, cli.WithRenderer(tui.NewRenderer()))
			}

			in := cli.NewInterruptibleReader(sigCtx, cmd.InOrStdin())
			res, err := cli.NewRunner(rt.Engine, in, out, opts...).Run(sigCtx, state)
			if err != nil {
				return err
			}
			if res.Record == nil && sigCtx.Signal() != nil {
				fmt.Fprintf(out, ">>> Interrupted at step %d.\n", res.State.CurrentStep)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&patientName, "patient", "", "Patient name recorded with the session")
	cmd.Flags().StringVar(&patientID, "patient-id", "", "Patient identifier when no name is given")
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable banner and styled report output")
	return cmd
}
