// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package record parses ClinicalTrials.gov XML files into Records.
// Each field is probed independently; a missing element yields an absent
// field, and only a malformed document is an error.
package record

import (
	"fmt"
	"os"

	"github.com/pdiddy/trialsift/pkg/types"
)

// ParseError reports a record file that could not be read or parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Element paths probed for each field, relative to the document root.
var (
	conditionPath  = []string{"condition"}
	studyTypePath  = []string{"study_type"}
	sponsorPath    = []string{"sponsors", "lead_sponsor", "agency"}
	identifierPath = []string{"id_info", "nct_id"}
	phasePath      = []string{"phase"}
	urlPath        = []string{"required_header", "url"}
)

// Parse reads the XML file at path and extracts a Record. It returns a
// *ParseError if the file cannot be opened or is not well-formed.
func Parse(path string) (types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Record{}, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	root, err := decodeTree(f)
	if err != nil {
		return types.Record{}, &ParseError{Path: path, Err: err}
	}
	return FromTree(path, root), nil
}

// FromTree extracts a Record from an already parsed document root.
func FromTree(path string, root *Node) types.Record {
	return types.Record{
		Path:       path,
		Condition:  root.Lookup(conditionPath...),
		StudyType:  root.Lookup(studyTypePath...),
		Sponsor:    root.Lookup(sponsorPath...),
		Identifier: root.Lookup(identifierPath...),
		Phase:      root.Lookup(phasePath...),
		URL:        root.Lookup(urlPath...),
	}
}
