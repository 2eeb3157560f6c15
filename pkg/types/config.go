package types

// PipelineConfig holds settings for one extract run.
type PipelineConfig struct {
	// Root is the directory searched recursively for record files.
	Root string `json:"root" yaml:"root"`

	// ReferenceList is the CSV file whose first column holds the target
	// condition names (e.g. "rare_cancers.csv").
	ReferenceList string `json:"reference_list" yaml:"reference_list"`

	// SkipHeader treats the first row of the reference list as a header.
	SkipHeader bool `json:"skip_header" yaml:"skip_header"`

	// Output is the CSV table written by the run (default "output.csv").
	Output string `json:"output" yaml:"output"`

	// Extension is the record file extension without the dot (default "xml").
	Extension string `json:"extension" yaml:"extension"`

	// AbsentMarker is written for fields the record does not carry
	// (default "None"). An empty string yields empty cells.
	AbsentMarker string `json:"absent_marker" yaml:"absent_marker"`

	// SummaryFile, if set, receives the RunSummary as YAML.
	SummaryFile string `json:"summary_file,omitempty" yaml:"summary_file,omitempty"`

	// DatabasePath, if set, is a SQLite database that indexes retained records.
	DatabasePath string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
}

const (
	DefaultReferenceList = "rare_cancers.csv"
	DefaultOutput        = "output.csv"
	DefaultExtension     = "xml"
)

// WithDefaults returns a copy of c with empty fields filled in. AbsentMarker
// is left alone because the empty string is a valid choice.
func (c PipelineConfig) WithDefaults() PipelineConfig {
	if c.ReferenceList == "" {
		c.ReferenceList = DefaultReferenceList
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	return c
}
