// Package report writes the artifacts of an analysis run: results.json,
// report.html, features.csv and features.xlsx.
//
// Artifacts are rendered into a staging directory next to the output
// directory and only moved into place once all of them succeeded, so a failed
// run never leaves a partial report behind.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"hrcli/internal/analysis"
	"hrcli/internal/config"
	apperrors "hrcli/internal/errors"
)

// Artifacts lists the paths of a written report.
type Artifacts struct {
	Dir          string
	Results      string
	HTML         string
	FeaturesCSV  string
	FeaturesXLSX string
}

type artifact struct {
	name  string
	write func(path string, out *analysis.Outcome) error
}

// Writer renders and publishes report artifacts.
type Writer struct {
	logger *slog.Logger
	csv    *CSVWriter
	now    func() time.Time
	extra  []artifact
}

// NewWriter creates a report writer
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "report")
	return &Writer{
		logger: logger,
		csv:    NewCSVWriter(logger),
		now:    time.Now,
	}
}

func (w *Writer) artifacts() []artifact {
	list := []artifact{
		{config.ResultsFileName, writeResultsJSON},
		{config.ReportFileName, w.writeHTML},
		{config.FeaturesCSVFileName, w.writeFeaturesCSV},
		{config.FeaturesXLSXFileName, WriteWorkbook},
	}
	return append(list, w.extra...)
}

// Write renders every artifact of out and publishes them into outDir.
// On error outDir is left as it was.
func (w *Writer) Write(ctx context.Context, outDir string, out *analysis.Outcome) (*Artifacts, error) {
	if out == nil || out.Results == nil || out.Features == nil {
		return nil, apperrors.NewStorageError("nothing to write", errors.New("analysis outcome is incomplete"))
	}

	outDir, err := filepath.Abs(outDir)
	if err != nil {
		return nil, apperrors.NewStorageError("resolve output directory", err)
	}
	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, apperrors.NewStorageError("create output parent directory", err).WithContext("path", parent)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+"-staging-*")
	if err != nil {
		return nil, apperrors.NewStorageError("create staging directory", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0755); err != nil {
		return nil, apperrors.NewStorageError("prepare staging directory", err)
	}

	names := make([]string, 0, 4)
	for _, a := range w.artifacts() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(staging, a.name)
		if err := a.write(path, out); err != nil {
			w.logger.ErrorContext(ctx, "Failed to render artifact",
				slog.String("artifact", a.name),
				slog.String("error", err.Error()))
			return nil, apperrors.NewStorageError("render "+a.name, err)
		}
		names = append(names, a.name)
	}

	if err := publish(staging, outDir, names); err != nil {
		return nil, apperrors.NewStorageError("publish report", err).WithContext("path", outDir)
	}

	w.logger.InfoContext(ctx, "Report written",
		slog.String("dir", outDir),
		slog.Int("artifacts", len(names)))

	return &Artifacts{
		Dir:          outDir,
		Results:      filepath.Join(outDir, config.ResultsFileName),
		HTML:         filepath.Join(outDir, config.ReportFileName),
		FeaturesCSV:  filepath.Join(outDir, config.FeaturesCSVFileName),
		FeaturesXLSX: filepath.Join(outDir, config.FeaturesXLSXFileName),
	}, nil
}

// publish moves the staged files into outDir. A missing outDir is created by
// renaming the staging directory. Otherwise files already in outDir are
// backed up first and restored if any move fails.
func publish(staging, outDir string, names []string) error {
	info, err := os.Stat(outDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return os.Rename(staging, outDir)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", outDir)
	}

	backup, err := os.MkdirTemp(staging, ".previous-*")
	if err != nil {
		return err
	}

	var backedUp, moved []string
	rollback := func() {
		for _, name := range moved {
			os.Remove(filepath.Join(outDir, name))
		}
		for _, name := range backedUp {
			os.Rename(filepath.Join(backup, name), filepath.Join(outDir, name))
		}
	}

	for _, name := range names {
		dst := filepath.Join(outDir, name)
		if _, err := os.Lstat(dst); err == nil {
			if err := os.Rename(dst, filepath.Join(backup, name)); err != nil {
				rollback()
				return err
			}
			backedUp = append(backedUp, name)
		}
	}
	for _, name := range names {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(outDir, name)); err != nil {
			rollback()
			return err
		}
		moved = append(moved, name)
	}
	return nil
}

func writeResultsJSON(path string, out *analysis.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out.Results); err != nil {
		return err
	}
	return f.Close()
}

func (w *Writer) writeHTML(path string, out *analysis.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := RenderHTML(f, out, w.now()); err != nil {
		return err
	}
	return f.Close()
}

func (w *Writer) writeFeaturesCSV(path string, out *analysis.Outcome) error {
	return w.csv.WriteSimpleCSV(path, featureHeaders, featureRows(out))
}
