// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter loads the reference list of target conditions and decides
// which records belong in the output.
package filter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/trialsift/pkg/types"
)

// ErrConfigLoad is returned when the reference list cannot be loaded.
var ErrConfigLoad = errors.New("loading reference list")

// CategorySet is a set of lowercase target condition names.
type CategorySet map[string]struct{}

// NewCategorySet builds a set from names, lowercasing each one.
func NewCategorySet(names ...string) CategorySet {
	set := make(CategorySet, len(names))
	for _, n := range names {
		set.Add(n)
	}
	return set
}

// Add inserts name in canonical case. Empty names are ignored.
func (s CategorySet) Add(name string) {
	if name == "" {
		return
	}
	s[strings.ToLower(name)] = struct{}{}
}

// Contains reports whether name, already lowercase, is in the set.
func (s CategorySet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// IsTarget reports whether the record's condition is one of the targets.
// A record without a condition never matches. The condition is compared as a
// whole; composite values such as "Sarcoma, Ewing; Osteosarcoma" are not
// split.
func IsTarget(r types.Record, set CategorySet) bool {
	if r.Condition == nil {
		return false
	}
	return set.Contains(strings.ToLower(*r.Condition))
}

// LoadCategories reads the CSV reference list at path and returns the set of
// names in its first column. When skipHeader is true the first row is
// dropped. Rows whose first cell is empty are ignored.
func LoadCategories(path string, skipHeader bool) (CategorySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	defer f.Close()

	set, err := ReadCategories(f, skipHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigLoad, path, err)
	}
	return set, nil
}

// ReadCategories parses a CSV reference list from r.
func ReadCategories(r io.Reader, skipHeader bool) (CategorySet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	set := make(CategorySet)
	first := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if first {
			first = false
			if skipHeader {
				continue
			}
		}
		if len(row) == 0 {
			continue
		}
		set.Add(row[0])
	}
	return set, nil
}
