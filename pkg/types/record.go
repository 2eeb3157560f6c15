// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultAbsentMarker is the literal written in place of a field the source
// record does not carry.
const DefaultAbsentMarker = "None"

// Record holds the fields extracted from one clinical trial XML file.
// A nil field means the path was not present in the source document.
type Record struct {
	// Path is the file the record was parsed from. It is not part of the
	// output table.
	Path string `json:"path" yaml:"path"`

	// Condition is the primary disease label (top-level <condition>).
	Condition *string `json:"condition" yaml:"condition"`

	// Identifier is the NCT number (id_info/nct_id).
	Identifier *string `json:"identifier" yaml:"identifier"`

	// Sponsor is the lead sponsor agency (sponsors/lead_sponsor/agency).
	Sponsor *string `json:"sponsor" yaml:"sponsor"`

	// Phase is the trial phase label (e.g. "Phase 2").
	Phase *string `json:"phase" yaml:"phase"`

	// StudyType classifies the study design (e.g. "Interventional").
	StudyType *string `json:"study_type" yaml:"study_type"`

	// URL is the record's reference URL (required_header/url).
	URL *string `json:"url" yaml:"url"`
}

// TableHeader is the fixed header row of the output table.
var TableHeader = []string{"Disease", "Number", "Sponsor", "Phase", "Study Type", "URL"}

// Row returns the record as a table row in TableHeader order, rendering
// absent fields as marker.
func (r Record) Row(marker string) []string {
	fields := []*string{r.Condition, r.Identifier, r.Sponsor, r.Phase, r.StudyType, r.URL}
	row := make([]string, len(fields))
	for i, f := range fields {
		if f == nil {
			row[i] = marker
			continue
		}
		row[i] = *f
	}
	return row
}

// ParseFailure records a file that could not be parsed.
type ParseFailure struct {
	Path  string `json:"path" yaml:"path"`
	Cause string `json:"cause" yaml:"cause"`
}

// RunSummary holds counts and failures from one pipeline run.
type RunSummary struct {
	// Root is the directory that was scanned.
	Root string `json:"root" yaml:"root"`

	// Output is the path of the written table.
	Output string `json:"output" yaml:"output"`

	Discovered int `json:"discovered" yaml:"discovered"`
	Parsed     int `json:"parsed" yaml:"parsed"`
	Failed     int `json:"failed" yaml:"failed"`
	Matched    int `json:"matched" yaml:"matched"`

	// Failures lists every file that was skipped because it did not parse.
	Failures []ParseFailure `json:"failures,omitempty" yaml:"failures,omitempty"`

	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// HasFailures reports whether any file failed to parse.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}
