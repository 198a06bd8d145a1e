package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/shark-globe/internal/pipeline"
	"github.com/sells-group/shark-globe/internal/table"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Print the inferred column schema of an occurrence export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := pipeline.TableOptions(cfg.Ingest)
		if err != nil {
			return err
		}
		tbl, err := table.Read(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		return printSchema(cmd.OutOrStdout(), tbl)
	},
}

func printSchema(w io.Writer, tbl *table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "COLUMN\tTYPE\n")
	for _, f := range tbl.Schema() {
		fmt.Fprintf(tw, "%s\t%s\n", f.Name, f.Kind)
	}
	fmt.Fprintf(tw, "(%d rows)\t\n", tbl.Height())
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
