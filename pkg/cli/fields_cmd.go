package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Mahaan-Amr/servaan-sub004/internal/catalog"
)

func newFieldsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the report field catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			fields := cat.ListAll()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(fields)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tKIND\tRELATION\tAGGREGATIONS")
			for _, f := range fields {
				aggs := make([]string, len(f.Aggregations))
				for i, a := range f.Aggregations {
					aggs[i] = string(a)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					f.ID, f.Label, f.Kind, f.Relation, strings.Join(aggs, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
	return cmd
}
