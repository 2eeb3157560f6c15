// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/trialsift/pkg/types"
)

// ErrWrite is returned when the output table cannot be written.
var ErrWrite = errors.New("writing output table")

// WriteTable writes the header row followed by one row per record.
// Absent fields are rendered as marker.
func WriteTable(w io.Writer, records []types.Record, marker string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.TableHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row(marker)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeTableFile creates or truncates path and writes the table to it.
func writeTableFile(path string, records []types.Record, marker string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := WriteTable(f, records, marker); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}
