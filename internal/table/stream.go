// Package table reads delimited occurrence exports into named, typed columns.
package table

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// StreamOptions configures the streaming delimited-text parser.
type StreamOptions struct {
	Delimiter rune // default '\t'
	// StrictQuotes rejects a quote inside an unquoted field and text after a
	// closing quote. Off by default: free-text GBIF columns carry bare quotes
	// such as 8' 6".
	StrictQuotes bool
	// Encoding is a WHATWG charset label such as "windows-1252". Empty and
	// UTF-8 labels read the input as-is.
	Encoding string
}

// decodeReader wraps r so it yields UTF-8.
func decodeReader(r io.Reader, label string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "table: unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(r), nil
}

// Row is one parsed record and the input line it started on.
type Row struct {
	Fields []string
	Line   int
}

// StreamRows reads delimited text and sends rows, header included, to a channel.
// Caller must drain the row channel. At most one error is sent on the error
// channel. Both channels are closed when processing completes.
func StreamRows(ctx context.Context, r io.Reader, opts StreamOptions) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		in, err := decodeReader(r, opts.Encoding)
		if err != nil {
			errCh <- err
			return
		}
		reader := csv.NewReader(in)
		reader.Comma = '\t'
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = !opts.StrictQuotes
		reader.FieldsPerRecord = -1 // GBIF exports drop trailing empty fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "table: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- err
				return
			}
			line, _ := reader.FieldPos(0)

			select {
			case rowCh <- Row{Fields: record, Line: line}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "table: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
