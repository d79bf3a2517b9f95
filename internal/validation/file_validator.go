// Package validation checks input and output locations before a run starts.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "hrcli/internal/errors"
)

// SupportedExtensions are the input formats the record store can read.
var SupportedExtensions = []string{".csv", ".xlsx", ".xlsm"}

// FileValidator validates paths given on the command line
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputFile checks that path is a readable, non-empty snapshot in a
// supported format.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		v.logger.Error("Input file does not exist",
			slog.String("file", path))
		return apperrors.NewStorageError("input file does not exist", err).WithContext("path", path)
	}
	if err != nil {
		return apperrors.NewStorageError("stat input file", err).WithContext("path", path)
	}
	if info.IsDir() {
		v.logger.Error("Input path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewStorageError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Refusing temporary Excel lock file",
			slog.String("file", path))
		return apperrors.NewStorageError(fmt.Sprintf("%s is a temporary Excel file", base), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !isSupported(ext) {
		v.logger.Error("Unsupported input format",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewStorageError(
			fmt.Sprintf("unsupported input format %q (want one of %s)", ext, strings.Join(SupportedExtensions, ", ")), nil)
	}

	if info.Size() == 0 {
		return apperrors.NewSchemaError(fmt.Sprintf("input file %s is empty", base))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("input file is not readable", err).WithContext("path", path)
	}
	file.Close()

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory checks that dir is either missing or a directory and
// that its parent accepts new files. Nothing is created inside dir itself.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		v.logger.Error("Output path is not a directory",
			slog.String("path", dir))
		return apperrors.NewStorageError(fmt.Sprintf("%s is not a directory", dir), nil)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return apperrors.NewStorageError("stat output directory", err).WithContext("path", dir)
	}

	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0755); err != nil {
		v.logger.Error("Failed to create output parent directory",
			slog.String("directory", parent),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("create output parent directory", err).WithContext("path", parent)
	}

	// Verify it's writable by creating a test file
	file, err := os.CreateTemp(parent, ".write_test-*")
	if err != nil {
		v.logger.Error("Output location is not writable",
			slog.String("directory", parent),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("output location is not writable", err).WithContext("path", parent)
	}
	file.Close()
	os.Remove(file.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

func isSupported(ext string) bool {
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
