package main

import (
	"errors"
	"fmt"
	"os"

	loamAdapter "github.com/manas360/stepwise/pkg/adapters/loam"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check protocol documents for consistency",
		Long: `Loads every protocol document in dir (default: --protocols or the current
directory) and reports the ones that do not form a valid protocol.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.ProtocolsDir
			if len(args) > 0 {
				dir = args[0]
			}
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}

			catalog, err := loamAdapter.Open(dir)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ids, err := catalog.List(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return fmt.Errorf("no protocol documents found in %s", dir)
			}

			out := cmd.OutOrStdout()
			var failed []error
			for _, id := range ids {
				schema, err := catalog.Lookup(ctx, id)
				if err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", id, err)
					failed = append(failed, err)
					continue
				}
				fmt.Fprintf(out, "ok   %s (%d steps)\n", id, schema.Len())
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d protocol(s) invalid: %w", len(failed), len(ids), errors.Join(failed...))
			}
			return nil
		},
	}
}
