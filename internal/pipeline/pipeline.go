// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the extract stage end to end: discover record files
// under a root directory, parse each one, keep the records whose condition
// is on the reference list, and write them as a CSV table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/trialsift/internal/filter"
	"github.com/pdiddy/trialsift/internal/record"
	"github.com/pdiddy/trialsift/internal/store"
	"github.com/pdiddy/trialsift/pkg/types"
)

// Run executes one extract pass described by cfg. Unparseable record files
// are logged, counted and skipped. Loading the reference list, reading the
// root directory and writing the table are fatal.
func Run(ctx context.Context, cfg types.PipelineConfig, log *zap.Logger) (types.RunSummary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.WithDefaults()

	summary := types.RunSummary{
		Root:      cfg.Root,
		Output:    cfg.Output,
		StartedAt: time.Now(),
	}

	targets, err := filter.LoadCategories(cfg.ReferenceList, cfg.SkipHeader)
	if err != nil {
		return summary, err
	}
	log.Debug("loaded reference list",
		zap.String("path", cfg.ReferenceList),
		zap.Int("categories", len(targets)))

	files, err := Discover(cfg.Root, cfg.Extension, log)
	if err != nil {
		return summary, err
	}
	summary.Discovered = len(files)
	log.Info("discovered record files",
		zap.String("root", cfg.Root),
		zap.Int("files", len(files)))

	var matched []types.Record
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rec, err := record.Parse(path)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, failureFor(path, err))
			log.Warn("unable to parse record file", zap.String("path", path), zap.Error(err))
			continue
		}
		summary.Parsed++

		if filter.IsTarget(rec, targets) {
			matched = append(matched, rec)
		}
		log.Debug("processed", zap.Int("n", i+1), zap.Int("of", len(files)), zap.String("path", path))
	}
	summary.Matched = len(matched)

	if err := writeTableFile(cfg.Output, matched, cfg.AbsentMarker); err != nil {
		return summary, err
	}
	summary.Duration = time.Since(summary.StartedAt)

	log.Info("wrote output table",
		zap.String("path", cfg.Output),
		zap.Int("parsed", summary.Parsed),
		zap.Int("failed", summary.Failed),
		zap.Int("matched", summary.Matched),
		zap.Duration("elapsed", summary.Duration))

	if cfg.SummaryFile != "" {
		if err := WriteSummaryFile(cfg.SummaryFile, summary); err != nil {
			return summary, fmt.Errorf("%w: summary: %w", ErrWrite, err)
		}
	}

	if cfg.DatabasePath != "" {
		runID, err := indexRun(ctx, cfg.DatabasePath, summary, matched)
		if err != nil {
			return summary, fmt.Errorf("%w: record index: %w", ErrWrite, err)
		}
		log.Info("indexed run", zap.String("db", cfg.DatabasePath), zap.Int64("run", runID))
	}

	return summary, nil
}

func indexRun(ctx context.Context, dbPath string, summary types.RunSummary, records []types.Record) (int64, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return s.SaveRun(ctx, summary, records)
}

func failureFor(path string, err error) types.ParseFailure {
	cause := err
	var pe *record.ParseError
	if errors.As(err, &pe) {
		cause = pe.Err
	}
	return types.ParseFailure{Path: path, Cause: cause.Error()}
}
