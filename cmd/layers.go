package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/shark-globe/internal/globe"
	"github.com/sells-group/shark-globe/internal/pipeline"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Load the configured background shapefiles and print what they contain",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "LAYER\tPOLYGONS\tSTRIPS\tSKIPPED\tPATH\n")
		outline := pipeline.OutlineOptions(cfg.Globe)
		for _, lc := range cfg.Layers {
			layer, err := globe.LoadLayer(lc.Name, lc.Path)
			if err != nil {
				return err
			}
			printLayer(tw, layer, lc.Path, outline)
		}
		return tw.Flush()
	},
}

func printLayer(w io.Writer, layer *globe.Layer, path string, outline globe.OutlineOptions) {
	strips := globe.OutlineStrips(layer.Polygons, outline)
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", layer.Name, layer.Polygons.NumPolygons(), len(strips), layer.Skipped, path)
}

func init() {
	rootCmd.AddCommand(layersCmd)
}
