package table

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0012345-download.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestRead_Archive(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"meta.xml":       "<archive/>",
		"occurrence.txt": "decimalLatitude\tdecimalLongitude\n-33.9\t151.2\n",
		"verbatim.txt":   "a\n1\n",
	})

	tbl, err := Read(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Height())
	_, ok := tbl.Column("decimalLongitude")
	assert.True(t, ok)
}

func TestRead_ArchiveMember(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"occurrence.txt": "a\n1\n",
		"multimedia.txt": "identifier\tformat\nx\ty\nz\tw\n",
	})

	tbl, err := Read(context.Background(), path, Options{ArchiveMember: "multimedia.txt"})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Height())
}

func TestRead_ArchiveMissingMember(t *testing.T) {
	path := writeArchive(t, map[string]string{"meta.xml": "<archive/>"})

	_, err := Read(context.Background(), path, Options{})
	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), `"occurrence.txt" not found`)
}
