// Command gendata writes a fictitious employee snapshot for trying out the
// analyzer. The output format follows the file extension (.csv or .xlsx).
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hrcli/internal/config"
	"hrcli/internal/infrastructure"
	"hrcli/internal/synth"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "gendata: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("gendata", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", 100, "number of employees")
	out := fs.String("out", "mitarbeiter.csv", "output file (.csv or .xlsx)")
	seed := fs.Uint64("seed", config.DefaultSeed, "random seed")
	asOf := fs.String("now", "", "generate relative to this date YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n <= 0 {
		return errors.New("-n must be positive")
	}

	now := time.Now()
	if *asOf != "" {
		t, err := time.Parse(config.DateLayout, *asOf)
		if err != nil {
			return fmt.Errorf("invalid -now: %w", err)
		}
		now = t
	}

	logger := infrastructure.WithComponent(infrastructure.NewLogger(stderr, "info"), "gendata")
	recs := synth.Generate(*n, now, *seed)

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	switch strings.ToLower(filepath.Ext(*out)) {
	case ".xlsx":
		if err := synth.WriteWorkbook(*out, recs); err != nil {
			return err
		}
	default:
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		if err := synth.WriteCSV(f, recs); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	departed := 0
	for _, r := range recs {
		if r.HasExit() {
			departed++
		}
	}
	logger.Info("Sample data written",
		slog.String("path", *out),
		slog.Int("employees", len(recs)),
		slog.Int("departed", departed))

	return nil
}
