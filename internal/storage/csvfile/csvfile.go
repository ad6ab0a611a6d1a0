// Package csvfile reads and writes comma-delimited table data files.
//
// A data file starts with a header row holding the column names, followed
// by one row per record in the same column order.
package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/leapstack-labs/leapdb/internal/storage"
	"github.com/leapstack-labs/leapdb/pkg/core"
)

// Create writes a new data file holding only the header row. It fails with
// core.KindExists if path already exists.
func Create(path string, header []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &core.Error{Kind: core.KindExists, Op: "create data file", Err: err}
		}
		return core.IOError("create data file", err)
	}

	if err := writeRecords(f, [][]string{header}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return core.IOError("write header", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return core.IOError("close data file", err)
	}
	return nil
}

// ReadAll returns the header and every data row of the file at path.
func ReadAll(path string) (header []string, rows []core.Row, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, core.IOError("open data file", err)
	}
	defer func() { _ = f.Close() }()

	r := newReader(f)
	header, err = r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, core.IOError("read header", fmt.Errorf("%s: missing header row", path))
	}
	if err != nil {
		return nil, nil, core.IOError("read header", err)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, core.IOError("read row", err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// Header returns only the header row of the file at path.
func Header(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.IOError("open data file", err)
	}
	defer func() { _ = f.Close() }()

	header, err := newReader(f).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%s: missing header row", path)
		}
		return nil, core.IOError("read header", err)
	}
	return header, nil
}

// Scan lazily yields the data rows of the file at path in on-disk order.
// Each iteration reopens the file from the start. Iteration stops after the
// first error.
func Scan(path string) iter.Seq2[core.Row, error] {
	return func(yield func(core.Row, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, core.IOError("open data file", err))
			return
		}
		defer func() { _ = f.Close() }()

		r := newReader(f)
		if _, err := r.Read(); err != nil {
			if !errors.Is(err, io.EOF) {
				yield(nil, core.IOError("read header", err))
			}
			return
		}

		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, core.IOError("read row", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Append adds rows to the end of the file at path. The rows are encoded
// up front and written with a single write call.
func Append(path string, rows ...core.Row) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = row
	}
	var buf bytes.Buffer
	if err := writeRecords(&buf, records); err != nil {
		return core.IOError("encode rows", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return core.IOError("open data file", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return core.IOError("append rows", err)
	}
	if err := f.Close(); err != nil {
		return core.IOError("close data file", err)
	}
	return nil
}

// Rewrite atomically replaces the file at path with header and rows.
func Rewrite(path string, header []string, rows []core.Row) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		records = append(records, row)
	}
	if err := storage.WriteAtomic(path, func(w io.Writer) error {
		return writeRecords(w, records)
	}); err != nil {
		return core.IOError("rewrite data file", err)
	}
	return nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// writeRecords encodes records as CSV. A record made of one empty field is
// written as a quoted empty string; csv.Writer would emit a blank line,
// which readers skip.
func writeRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	for _, rec := range records {
		if len(rec) == 1 && rec[0] == "" {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
