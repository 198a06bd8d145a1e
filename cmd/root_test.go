package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/shark-globe/internal/globe"
	"github.com/sells-group/shark-globe/internal/table"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "schema", "layers", "config"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "shark-globe", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag, "root command should have --config flag")
	assert.Equal(t, "", flag.DefValue)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"sink", "dry-run", "skip-unknown-time", "report"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s flag", name)
	}
	assert.Equal(t, "false", runCmd.Flags().Lookup("dry-run").DefValue)
}

func TestSchemaCommand_RequiresFile(t *testing.T) {
	assert.Error(t, schemaCmd.Args(schemaCmd, nil))
	assert.NoError(t, schemaCmd.Args(schemaCmd, []string{"occurrence.txt"}))
}

func TestPrintSchema(t *testing.T) {
	tbl, err := table.New(
		table.NewColumn("decimalLatitude", []string{"-33.9", "21"}, -1),
		table.NewColumn("locality", []string{"Sydney", ""}, -1),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSchema(&buf, tbl))

	out := buf.String()
	assert.Contains(t, out, "COLUMN")
	assert.Regexp(t, `decimalLatitude\s+float64`, out)
	assert.Regexp(t, `locality\s+string`, out)
	assert.Contains(t, out, "(2 rows)")
}

func TestPrintLayer(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(geom.NewPolygonFlat(geom.XY, []float64{0, 0, 0, 1, 1, 1, 0, 0}, []int{8})))

	var buf bytes.Buffer
	printLayer(&buf, &globe.Layer{Name: "land", Polygons: mp, Skipped: 2}, "land.shp", globe.OutlineOptions{Radius: 1})
	assert.Equal(t, "land\t1\t1\t2\tland.shp\n", buf.String())
}

func TestRunCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "tigershark.tsv")
	require.NoError(t, os.WriteFile(data, []byte(strings.Join([]string{
		"decimalLatitude\tdecimalLongitude\tyear\tmonth\tday",
		"-33.9\t151.2\t2004\t3\t15",
		"21.3\t\t1999\t7\t4",
	}, "\n")+"\n"), 0o644))

	cfgPath := filepath.Join(dir, "sharkglobe.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
datasets:
  - name: tigershark
    path: `+data+`
    color: FF0000FF
    radius: 100000
layers: []
log:
  level: error
`), 0o644))

	rootCmd.SetArgs([]string{"run", "--config", cfgPath, "--dry-run"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Equal(t, "memory", cfg.Sink.Driver)
	require.Len(t, cfg.Datasets, 1)
}

func TestConfigCommand_PrintsYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sharkglobe.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("timeline:\n  name: Sightings\nlog:\n  level: error\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", cfgPath, "--validate"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "name: Sightings")
	assert.Contains(t, out.String(), "name: tigershark")
	assert.Contains(t, out.String(), "application_id: earth_example")
}
