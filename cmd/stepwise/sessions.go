package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/manas360/stepwise/pkg/ports"
	"github.com/manas360/stepwise/pkg/report"
	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "s"},
		Short:   "Manage stored session records",
	}
	cmd.AddCommand(
		newSessionsListCmd(a),
		newSessionsInspectCmd(a),
		newSessionsRemoveCmd(a),
	)
	return cmd
}

func newSessionsListCmd(a *app) *cobra.Command {
	var filter ports.RecordFilter
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List records, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			records, err := rt.Engine.Records(cmd.Context(), filter)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tPATIENT\tPROTOCOL\tSTATUS")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Timestamp.Local().Format(report.DateLayout), r.PatientIdentifier, r.TemplateID, r.Status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.PatientIdentifier, "patient", "", "Only records of this patient")
	cmd.Flags().StringVar(&filter.TemplateID, "protocol", "", "Only records of this protocol")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 0, "Maximum number of records (0 = all)")
	return cmd
}

func newSessionsInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <record-id>",
		Short: "Print a stored record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			record, err := rt.Engine.Record(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		},
	}
}

func newSessionsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <record-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete stored records",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			for _, id := range args {
				if err := rt.Engine.DeleteRecord(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}
