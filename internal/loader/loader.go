// Package loader turns a delimited dispute table into an immutable dataset.
//
// Only structural problems are fatal (missing source, no data rows, no
// discrepancy_value column). Individual cells that fail to parse become
// missing values.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"disputes/internal/core"
	"disputes/internal/sheets"
)

const utf8BOM = "\ufeff"

// Options tune how a table is read.
type Options struct {
	// Delimiter between cells; zero means ','.
	Delimiter rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// Load reads a comma separated file.
func Load(path string) (*core.Dataset, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions reads a delimited file at path.
func LoadWithOptions(path string, opts Options) (*core.Dataset, error) {
	src := &FileSource{Path: path, Delimiter: opts.delimiter()}
	return LoadFrom(context.Background(), src)
}

// LoadFrom reads the table from any source and parses it. Errors that are
// not already a *core.LoadError are reported as LoadRead.
func LoadFrom(ctx context.Context, src sheets.TableSource) (*core.Dataset, error) {
	table, err := src.ReadTable(ctx)
	if err != nil {
		var le *core.LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &core.LoadError{Kind: core.LoadRead, Source: src.Name(), Err: err}
	}
	return Parse(src.Name(), table)
}

// ReadTable reads a header row and data rows. Rows may be ragged; a leading
// UTF-8 byte order mark is dropped.
func ReadTable(r io.Reader, delim rune) (core.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return core.Table{}, nil
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Table{}, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return core.Table{Header: header, Rows: rows}, nil
}

// FileSource is a TableSource over a local delimited file, or a workbook
// when the path ends in .xlsx.
type FileSource struct {
	Path      string
	Delimiter rune
}

func (s *FileSource) Name() string { return s.Path }

func (s *FileSource) ReadTable(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.Table{}, &core.LoadError{Kind: core.LoadNotFound, Source: s.Path, Err: err}
		}
		return core.Table{}, &core.LoadError{Kind: core.LoadRead, Source: s.Path, Err: err}
	}
	defer f.Close()

	var t core.Table
	if strings.EqualFold(filepath.Ext(s.Path), ".xlsx") {
		t, err = ReadXLSX(f)
	} else {
		delim := s.Delimiter
		if delim == 0 {
			delim = ','
		}
		t, err = ReadTable(f, delim)
	}
	if err != nil {
		return core.Table{}, &core.LoadError{Kind: core.LoadRead, Source: s.Path, Err: err}
	}
	return t, nil
}
