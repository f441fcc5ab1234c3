package main

import (
	"fmt"
	"strings"

	"github.com/manas360/stepwise/internal/presentation/tui"
	"github.com/manas360/stepwise/pkg/report"
	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		format string
		style  string
	)
	cmd := &cobra.Command{
		Use:   "report <record-id>",
		Short: "Print the session report of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			record, err := rt.Engine.Record(ctx, args[0])
			if err != nil {
				return err
			}
			rep, err := rt.Engine.Report(ctx, record)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "text":
				return report.WriteText(out, rep)
			case "markdown", "md":
				_, err := fmt.Fprint(out, report.Markdown(rep))
				return err
			case "terminal":
				rendered, err := report.Terminal(rep, style, tui.Width())
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, rendered)
				return err
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, markdown or terminal")
	cmd.Flags().StringVar(&style, "style", "", "Glamour style for terminal output (default: auto)")
	return cmd
}
