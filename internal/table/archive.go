package table

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultArchiveMember is the core data file of a GBIF Darwin Core archive.
const DefaultArchiveMember = "occurrence.txt"

// archiveReader streams one member of a ZIP archive and closes both on Close.
type archiveReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (a *archiveReader) Close() error {
	err := a.ReadCloser.Close()
	if cerr := a.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// openInput opens path for reading. A .zip path is treated as a Darwin Core
// archive and the named member (DefaultArchiveMember when empty) is streamed
// without extracting it.
func openInput(name, member string) (io.ReadCloser, error) {
	if !strings.EqualFold(path.Ext(name), ".zip") {
		return os.Open(name)
	}
	if member == "" {
		member = DefaultArchiveMember
	}

	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() || f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			r.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "zip: open entry")
		}
		return &archiveReader{ReadCloser: rc, archive: r}, nil
	}
	r.Close() //nolint:errcheck
	return nil, eris.Errorf("zip: file %q not found in archive", member)
}
