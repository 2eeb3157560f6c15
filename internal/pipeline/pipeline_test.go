// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/trialsift/internal/filter"
	"github.com/pdiddy/trialsift/internal/store"
	"github.com/pdiddy/trialsift/pkg/types"
)

// --- test helpers ---

type study struct {
	condition, nctID, sponsor, phase, studyType, url string
}

func (s study) xml() string {
	var b strings.Builder
	b.WriteString("<clinical_study>\n")
	if s.url != "" {
		fmt.Fprintf(&b, "  <required_header><url>%s</url></required_header>\n", s.url)
	}
	if s.nctID != "" {
		fmt.Fprintf(&b, "  <id_info><nct_id>%s</nct_id></id_info>\n", s.nctID)
	}
	if s.sponsor != "" {
		fmt.Fprintf(&b, "  <sponsors><lead_sponsor><agency>%s</agency></lead_sponsor></sponsors>\n", s.sponsor)
	}
	if s.phase != "" {
		fmt.Fprintf(&b, "  <phase>%s</phase>\n", s.phase)
	}
	if s.studyType != "" {
		fmt.Fprintf(&b, "  <study_type>%s</study_type>\n", s.studyType)
	}
	if s.condition != "" {
		fmt.Fprintf(&b, "  <condition>%s</condition>\n", s.condition)
	}
	b.WriteString("</clinical_study>\n")
	return b.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testSetup creates a record root and a reference list, returning a config
// whose output lands in the same temp dir.
func testSetup(t *testing.T, reference string) types.PipelineConfig {
	t.Helper()
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "trials")
	require.NoError(t, os.MkdirAll(root, 0o755))
	refPath := filepath.Join(tmpDir, "rare_cancers.csv")
	writeFile(t, refPath, reference)

	return types.PipelineConfig{
		Root:          root,
		ReferenceList: refPath,
		Output:        filepath.Join(tmpDir, "output.csv"),
		AbsentMarker:  types.DefaultAbsentMarker,
	}
}

func readTable(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

var header = []string{"Disease", "Number", "Sponsor", "Phase", "Study Type", "URL"}

// --- Run ---

func TestRun_EwingSarcomaScenario(t *testing.T) {
	cfg := testSetup(t, "ewing sarcoma\n")
	writeFile(t, filepath.Join(cfg.Root, "NCT00000001.xml"), study{
		condition: "Ewing Sarcoma",
		sponsor:   "NIH",
		nctID:     "NCT00000001",
		studyType: "Interventional",
		url:       "http://example.org/1",
	}.xml())

	summary, err := Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Discovered)
	assert.Equal(t, 1, summary.Parsed)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, [][]string{
		header,
		{"Ewing Sarcoma", "NCT00000001", "NIH", "None", "Interventional", "http://example.org/1"},
	}, readTable(t, cfg.Output))
}

func TestRun_EmptyDirectory(t *testing.T) {
	cfg := testSetup(t, "sarcoma\n")

	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Discovered)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, "Disease,Number,Sponsor,Phase,Study Type,URL\n", string(data))
}

func TestRun_FiltersAndKeepsEnumerationOrder(t *testing.T) {
	cfg := testSetup(t, "Sarcoma\nChordoma\nMesothelioma\n")

	files := map[string]study{
		"a/NCT3.xml":     {condition: "Chordoma", nctID: "NCT3"},
		"a/b/NCT1.xml":   {condition: "SARCOMA", nctID: "NCT1"},
		"c/NCT2.xml":     {condition: "Breast Cancer", nctID: "NCT2"},
		"c/NCT4.xml":     {nctID: "NCT4", sponsor: "NIH", phase: "Phase 1", studyType: "Interventional", url: "u"},
		"d/NCT5.xml":     {condition: "mesothelioma", nctID: "NCT5"},
		"d/notes.txt":    {condition: "Sarcoma", nctID: "TXT"},
		".hidden/x.xml":  {condition: "Sarcoma", nctID: "HIDDEN"},
		"e/.dotfile.xml": {condition: "Sarcoma", nctID: "DOT"},
	}
	for name, s := range files {
		writeFile(t, filepath.Join(cfg.Root, name), s.xml())
	}

	summary, err := Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Discovered)
	assert.Equal(t, 5, summary.Parsed)
	assert.Equal(t, 3, summary.Matched)

	rows := readTable(t, cfg.Output)
	require.Len(t, rows, 4)
	assert.Equal(t, header, rows[0])

	var ids []string
	for _, r := range rows[1:] {
		ids = append(ids, r[1])
	}
	assert.Equal(t, []string{"NCT3", "NCT1", "NCT5"}, ids, "lexical walk order: a/NCT3.xml sorts before a/b")
}

func TestRun_ParseFailuresAreCountedNotFatal(t *testing.T) {
	cfg := testSetup(t, "sarcoma\n")
	writeFile(t, filepath.Join(cfg.Root, "good.xml"), study{condition: "Sarcoma", nctID: "NCT1"}.xml())
	writeFile(t, filepath.Join(cfg.Root, "broken.xml"), "<clinical_study><condition>Sarcoma</condition>")
	writeFile(t, filepath.Join(cfg.Root, "empty.xml"), "")

	core, logs := observer.New(zapcore.WarnLevel)
	summary, err := Run(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 1, summary.Parsed)
	assert.Equal(t, 2, summary.Failed)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 1, summary.Matched)

	require.Len(t, summary.Failures, 2)
	assert.Equal(t, filepath.Join(cfg.Root, "broken.xml"), summary.Failures[0].Path)
	assert.NotEmpty(t, summary.Failures[0].Cause)

	warnings := logs.FilterMessage("unable to parse record file").All()
	require.Len(t, warnings, 2)
	assert.Equal(t, filepath.Join(cfg.Root, "broken.xml"), warnings[0].ContextMap()["path"])

	assert.Len(t, readTable(t, cfg.Output), 2)
}

func TestRun_AbsentConditionNeverWritten(t *testing.T) {
	cfg := testSetup(t, "none\nsarcoma\n")
	writeFile(t, filepath.Join(cfg.Root, "x.xml"), study{
		nctID: "NCT9", sponsor: "NIH", phase: "Phase 3", studyType: "Observational", url: "http://example.org/9",
	}.xml())

	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Parsed)
	assert.Equal(t, 0, summary.Matched)
	assert.Equal(t, [][]string{header}, readTable(t, cfg.Output))
}

func TestRun_RoundTripRowCount(t *testing.T) {
	cfg := testSetup(t, "sarcoma\n")
	const n, m = 12, 5
	for i := 0; i < n; i++ {
		cond := "Leukemia"
		if i < m {
			cond = "Sarcoma"
		}
		writeFile(t, filepath.Join(cfg.Root, fmt.Sprintf("NCT%02d.xml", i)), study{condition: cond, nctID: fmt.Sprintf("NCT%02d", i)}.xml())
	}

	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, m, summary.Matched)

	rows := readTable(t, cfg.Output)
	require.Len(t, rows, m+1)
	for i, r := range rows[1:] {
		assert.Equal(t, fmt.Sprintf("NCT%02d", i), r[1])
	}
}

func TestRun_CustomAbsentMarker(t *testing.T) {
	cfg := testSetup(t, "sarcoma\n")
	cfg.AbsentMarker = ""
	writeFile(t, filepath.Join(cfg.Root, "x.xml"), study{condition: "Sarcoma"}.xml())

	_, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sarcoma", "", "", "", "", ""}, readTable(t, cfg.Output)[1])
}

func TestRun_ExtensionOption(t *testing.T) {
	cfg := testSetup(t, "sarcoma\n")
	cfg.Extension = "rec"
	writeFile(t, filepath.Join(cfg.Root, "one.rec"), study{condition: "Sarcoma", nctID: "R"}.xml())
	writeFile(t, filepath.Join(cfg.Root, "two.xml"), study{condition: "Sarcoma", nctID: "X"}.xml())

	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Discovered)
	assert.Equal(t, "R", readTable(t, cfg.Output)[1][1])
}

func TestRun_FatalErrors(t *testing.T) {
	t.Run("missing reference list", func(t *testing.T) {
		cfg := testSetup(t, "sarcoma\n")
		cfg.ReferenceList = filepath.Join(t.TempDir(), "nope.csv")

		_, err := Run(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, filter.ErrConfigLoad)
		assert.NoFileExists(t, cfg.Output, "no partial run")
	})

	t.Run("missing root directory", func(t *testing.T) {
		cfg := testSetup(t, "sarcoma\n")
		cfg.Root = filepath.Join(cfg.Root, "does-not-exist")

		_, err := Run(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, ErrInvalidDirectory)
		assert.NoFileExists(t, cfg.Output)
	})

	t.Run("root is a file", func(t *testing.T) {
		cfg := testSetup(t, "sarcoma\n")
		cfg.Root = cfg.ReferenceList

		_, err := Run(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, ErrInvalidDirectory)
	})

	t.Run("unwritable output", func(t *testing.T) {
		cfg := testSetup(t, "sarcoma\n")
		cfg.Output = filepath.Join(cfg.Root, "missing-dir", "output.csv")

		_, err := Run(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, ErrWrite)
	})
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testSetup(t, "sarcoma\n")
	writeFile(t, filepath.Join(cfg.Root, "x.xml"), study{condition: "Sarcoma"}.xml())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, cfg.Output)
}

func TestRun_SummaryFileAndIndex(t *testing.T) {
	cfg := testSetup(t, "sarcoma\n")
	dir := filepath.Dir(cfg.Output)
	cfg.SummaryFile = filepath.Join(dir, "summary.yaml")
	cfg.DatabasePath = filepath.Join(dir, "index", "trials.db")

	writeFile(t, filepath.Join(cfg.Root, "a.xml"), study{condition: "Sarcoma", nctID: "NCT1", sponsor: "NIH"}.xml())
	writeFile(t, filepath.Join(cfg.Root, "b.xml"), "garbage")

	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	saved, err := ReadSummaryFile(cfg.SummaryFile)
	require.NoError(t, err)
	assert.Equal(t, summary.Discovered, saved.Discovered)
	assert.Equal(t, summary.Failed, saved.Failed)
	assert.Equal(t, summary.Matched, saved.Matched)
	assert.Equal(t, summary.Failures, saved.Failures)
	assert.Equal(t, summary.Output, saved.Output)

	s, err := store.Open(cfg.DatabasePath)
	require.NoError(t, err)
	defer s.Close()

	runID, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	records, err := s.Records(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "NCT1", *records[0].Identifier)
	assert.Nil(t, records[0].Phase)
}

// --- components ---

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.xml", "a/z.xml", "a/y.XML", "c/d/e.xml", "f.xmlx", ".git/config.xml"} {
		writeFile(t, filepath.Join(root, name), "<x/>")
	}

	files, err := Discover(root, ".xml", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "z.xml"),
		filepath.Join(root, "b.xml"),
		filepath.Join(root, "c", "d", "e.xml"),
	}, files)
}

func TestDiscover_UnreadableSubdirectorySkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.xml"), "<x/>")
	writeFile(t, filepath.Join(root, "locked", "b.xml"), "<x/>")
	writeFile(t, filepath.Join(root, "z", "c.xml"), "<x/>")

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	core, logs := observer.New(zapcore.WarnLevel)
	files, err := Discover(root, "xml", zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.xml"),
		filepath.Join(root, "z", "c.xml"),
	}, files)

	skipped := logs.FilterMessage("skipping unreadable path").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, locked, skipped[0].ContextMap()["path"])
}

func TestDiscover_UnreadableRootIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o000))
	t.Cleanup(func() { os.Chmod(root, 0o755) })

	_, err := Discover(root, "xml", nil)
	assert.ErrorIs(t, err, ErrInvalidDirectory)
}

func TestWriteTable(t *testing.T) {
	name := "Sarcoma, Ewing"
	quoted := `He said "hi"`
	var buf bytes.Buffer
	err := WriteTable(&buf, []types.Record{{Condition: &name, Sponsor: &quoted}}, "None")
	require.NoError(t, err)

	assert.Equal(t,
		"Disease,Number,Sponsor,Phase,Study Type,URL\n"+
			`"Sarcoma, Ewing",None,"He said ""hi""",None,None,None`+"\n",
		buf.String())
}
