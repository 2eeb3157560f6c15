// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/trialsift/internal/pipeline"
	"github.com/pdiddy/trialsift/pkg/types"
)

// Viper keys for the extract command. Each can come from the config file,
// a TRIALSIFT_* environment variable, or the matching flag.
const (
	keyDefaultDir    = "default_dir"
	keyReferenceList = "reference_list"
	keySkipHeader    = "skip_header"
	keyOutput        = "output"
	keyExtension     = "extension"
	keyAbsentMarker  = "absent_marker"
	keySummaryFile   = "summary_file"
	keyDatabasePath  = "database_path"
)

var extractCmd = &cobra.Command{
	Use:   "extract [directory]",
	Short: "Extract target-condition trials from a directory of XML records",
	Long: `Extract walks the directory recursively, parses every record file, keeps
the trials whose condition matches the reference list (case-insensitive), and
writes them to a CSV table with the columns

  Disease, Number, Sponsor, Phase, Study Type, URL

Fields missing from a record are written as the absent marker ("None" by
default). Files that fail to parse are reported and skipped.

If no directory is given, default_dir from the config file is used, then the
current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("reference", types.DefaultReferenceList, "CSV reference list; the first column holds target condition names")
	extractCmd.Flags().Bool("skip-header", false, "treat the first row of the reference list as a header")
	extractCmd.Flags().StringP("output", "o", types.DefaultOutput, "output CSV table")
	extractCmd.Flags().String("ext", types.DefaultExtension, "record file extension")
	extractCmd.Flags().String("absent", types.DefaultAbsentMarker, "text written for fields missing from a record")
	extractCmd.Flags().String("summary", "", "also write a YAML run summary to this file")
	extractCmd.Flags().String("db", "", "also index retained trials into this SQLite database")

	for key, flag := range map[string]string{
		keyReferenceList: "reference",
		keySkipHeader:    "skip-header",
		keyOutput:        "output",
		keyExtension:     "ext",
		keyAbsentMarker:  "absent",
		keySummaryFile:   "summary",
		keyDatabasePath:  "db",
	} {
		_ = viper.BindPFlag(key, extractCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := extractConfig(viper.GetViper(), args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := pipeline.Run(ctx, cfg, logger)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

// extractConfig resolves the pipeline configuration from v and the optional
// directory argument.
func extractConfig(v *viper.Viper, args []string) types.PipelineConfig {
	root := v.GetString(keyDefaultDir)
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		root = "."
	}

	return types.PipelineConfig{
		Root:          root,
		ReferenceList: v.GetString(keyReferenceList),
		SkipHeader:    v.GetBool(keySkipHeader),
		Output:        v.GetString(keyOutput),
		Extension:     v.GetString(keyExtension),
		AbsentMarker:  v.GetString(keyAbsentMarker),
		SummaryFile:   v.GetString(keySummaryFile),
		DatabasePath:  v.GetString(keyDatabasePath),
	}.WithDefaults()
}

func printSummary(w io.Writer, s types.RunSummary) {
	for _, f := range s.Failures {
		fmt.Fprintf(w, "failed:  %s (%s)\n", f.Path, f.Cause)
	}
	fmt.Fprintf(w, "\nExtract summary: %d discovered, %d parsed, %d failed, %d matched\n",
		s.Discovered, s.Parsed, s.Failed, s.Matched)
	fmt.Fprintf(w, "Wrote %s\n", s.Output)
}
