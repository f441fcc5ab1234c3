package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/loam"
	"github.com/manas360/stepwise/internal/presentation/graph"
	loamAdapter "github.com/manas360/stepwise/pkg/adapters/loam"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newProtocolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "protocols",
		Aliases: []string{"protocol", "p"},
		Short:   "Inspect and export protocols",
	}
	cmd.AddCommand(
		newProtocolsListCmd(a),
		newProtocolsShowCmd(a),
		newProtocolsExportCmd(a),
		newProtocolsGraphCmd(a),
	)
	return cmd
}

func newProtocolsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available protocols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			schemas, err := rt.Engine.Protocols(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTEPS\tDURATION\tDIFFICULTY\tFOCUS")
			for _, s := range schemas {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", s.ProtocolID, s.Title, s.Len(), s.Duration, s.Difficulty, s.Focus)
			}
			return w.Flush()
		},
	}
}

func newProtocolsShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <protocol>",
		Short: "Print a protocol definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			schema, err := rt.Engine.Protocol(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(schema); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(schema)
			case "markdown", "md":
				doc, err := loamAdapter.Document(schema)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, doc.Content)
				return err
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, json or markdown")
	return cmd
}

func newProtocolsExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir> [protocol...]",
		Short: "Write protocols as Markdown documents",
		Long: `Writes each protocol (all of them when none is named) as a Markdown
document with YAML front matter. The directory can then be used with --protocols.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			schemas, err := rt.Engine.Protocols(ctx)
			if err != nil {
				return err
			}
			if wanted := args[1:]; len(wanted) > 0 {
				schemas = schemas[:0]
				for _, id := range wanted {
					s, err := rt.Engine.Protocol(ctx, id)
					if err != nil {
						return err
					}
					schemas = append(schemas, s)
				}
			}

			repo, err := loam.Init(args[0], loam.WithVersioning(false))
			if err != nil {
				return fmt.Errorf("failed to initialize loam: %w", err)
			}
			if err := loamAdapter.Export(ctx, repo, schemas...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d protocol(s) to %s\n", len(schemas), args[0])
			return nil
		},
	}
}

func newProtocolsGraphCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <protocol>",
		Short: "Print the step flow as a Mermaid diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			schema, err := rt.Engine.Protocol(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(schema, nil))
			return err
		},
	}
}
