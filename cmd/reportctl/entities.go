package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"reportengine/internal/domain/records"
	"reportengine/internal/metadata"
)

func entitiesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "entities [name]",
		Short: "List reportable entities or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := records.NewRegistry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				defs := reg.List()
				if asJSON {
					return printJSON(out, defs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"Name", "Label", "Fields"})
				for _, d := range defs {
					tw.AppendRow(table.Row{d.Name, d.Label, len(d.Fields)})
				}
				tw.Render()
				return nil
			}

			def, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown entity %q", args[0])
			}
			if asJSON {
				return printJSON(out, def)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.SetTitle(def.Label)
			tw.AppendHeader(table.Row{"Field", "Label", "Type", "Capabilities", "Options"})
			for _, f := range def.Fields {
				tw.AppendRow(table.Row{f.Name, f.Label, f.Type, capabilities(f), strings.Join(f.Options, ", ")})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func capabilities(f metadata.FieldDef) string {
	var caps []string
	if f.Filterable {
		caps = append(caps, "filter")
	}
	if f.Groupable {
		caps = append(caps, "group")
	}
	if f.Sortable {
		caps = append(caps, "sort")
	}
	if f.Aggregatable {
		caps = append(caps, "agg")
	}
	return strings.Join(caps, ",")
}
