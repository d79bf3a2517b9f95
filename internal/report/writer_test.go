package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hrcli/internal/analysis"
	"hrcli/internal/config"
	apperrors "hrcli/internal/errors"
	"hrcli/internal/synth"
)

var refTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testOutcome(t *testing.T) *analysis.Outcome {
	t.Helper()
	opts := analysis.DefaultOptions(refTime)
	opts.Estimators = 10
	out, err := analysis.Run(context.Background(), synth.GenerateFixed(4, 16, refTime, 11), opts)
	require.NoError(t, err)
	return out
}

func newTestWriter() *Writer {
	w := NewWriter(nil)
	w.now = func() time.Time { return time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC) }
	return w
}

func TestWriter_Write(t *testing.T) {
	out := testOutcome(t)
	dir := filepath.Join(t.TempDir(), "analysis_results")

	arts, err := newTestWriter().Write(context.Background(), dir, out)
	require.NoError(t, err)

	for _, p := range []string{arts.Results, arts.HTML, arts.FeaturesCSV, arts.FeaturesXLSX} {
		assert.FileExists(t, p)
		assert.Equal(t, dir, filepath.Dir(p))
	}

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directory must be gone")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestWriter_ResultsJSON(t *testing.T) {
	out := testOutcome(t)
	dir := t.TempDir()

	arts, err := newTestWriter().Write(context.Background(), dir, out)
	require.NoError(t, err)

	data, err := os.ReadFile(arts.Results)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 4)
	assert.Contains(t, string(data), "\n    \"basic_stats\"")

	basic := decoded["basic_stats"].(map[string]interface{})
	assert.Equal(t, 20.0, basic["total_employees"])
}

func TestWriter_FeaturesCSV(t *testing.T) {
	out := testOutcome(t)
	arts, err := newTestWriter().Write(context.Background(), t.TempDir(), out)
	require.NoError(t, err)

	data, err := os.ReadFile(arts.FeaturesCSV)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 21)
	assert.Equal(t, featureHeaders, rows[0])

	departed := 0
	for _, row := range rows[1:] {
		if row[len(row)-1] == "1" {
			departed++
		}
	}
	assert.Equal(t, 4, departed)
}

func TestWriter_Workbook(t *testing.T) {
	out := testOutcome(t)
	arts, err := newTestWriter().Write(context.Background(), t.TempDir(), out)
	require.NoError(t, err)

	f, err := excelize.OpenFile(arts.FeaturesXLSX)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetFeatures, SheetStatistics}, f.GetSheetList())

	rows, err := f.GetRows(SheetFeatures)
	require.NoError(t, err)
	assert.Len(t, rows, 21)
	assert.Equal(t, "Personalnummer", rows[0][0])

	total, err := f.GetCellValue(SheetStatistics, "B2")
	require.NoError(t, err)
	assert.Equal(t, "20", total)
}

func TestWriter_HTML(t *testing.T) {
	out := testOutcome(t)
	arts, err := newTestWriter().Write(context.Background(), t.TempDir(), out)
	require.NoError(t, err)

	data, err := os.ReadFile(arts.HTML)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "HR Analyse Bericht")
	assert.Contains(t, html, "Erstellt am: 02.01.2025 09:30:00")
	assert.Contains(t, html, "Stichtag 01.01.2025")
	assert.Contains(t, html, "Gesamtzahl Mitarbeiter: 20")
	assert.Contains(t, html, out.Meta.RunID)
	assert.Equal(t, 4, strings.Count(html, "<svg "))
	assert.Contains(t, html, "Modell-Genauigkeit: "+formatPercent(out.Results.ModelPerformance.Accuracy))
	for _, fw := range out.Results.FeatureImportance {
		assert.Contains(t, html, fw.Feature)
	}
}

func TestWriter_AllOrNothing(t *testing.T) {
	out := testOutcome(t)

	t.Run("new directory is not created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "analysis_results")
		w := newTestWriter()
		w.extra = []artifact{{"broken.txt", func(string, *analysis.Outcome) error { return errors.New("disk full") }}}

		_, err := w.Write(context.Background(), dir, out)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrStorage)
		assert.NoDirExists(t, dir)

		entries, err := os.ReadDir(filepath.Dir(dir))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("existing report is kept", func(t *testing.T) {
		dir := t.TempDir()
		previous := filepath.Join(dir, config.ResultsFileName)
		require.NoError(t, os.WriteFile(previous, []byte(`{"old":true}`), 0644))

		w := newTestWriter()
		w.extra = []artifact{{"broken.txt", func(string, *analysis.Outcome) error { return errors.New("disk full") }}}

		_, err := w.Write(context.Background(), dir, out)
		require.Error(t, err)

		data, err := os.ReadFile(previous)
		require.NoError(t, err)
		assert.Equal(t, `{"old":true}`, string(data))
		assert.NoFileExists(t, filepath.Join(dir, config.ReportFileName))
	})

	t.Run("existing report is replaced", func(t *testing.T) {
		dir := t.TempDir()
		previous := filepath.Join(dir, config.ResultsFileName)
		require.NoError(t, os.WriteFile(previous, []byte(`{"old":true}`), 0644))

		_, err := newTestWriter().Write(context.Background(), dir, out)
		require.NoError(t, err)

		data, err := os.ReadFile(previous)
		require.NoError(t, err)
		assert.Contains(t, string(data), "basic_stats")
	})

	t.Run("output path is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		_, err := newTestWriter().Write(context.Background(), path, out)
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})

	t.Run("incomplete outcome", func(t *testing.T) {
		_, err := newTestWriter().Write(context.Background(), t.TempDir(), &analysis.Outcome{})
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "29,87", formatNumber(29.8712))
	assert.Equal(t, "85,00 %", formatPercent(0.85))
	assert.Equal(t, "01.03.2024", formatDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "12.3457", formatFloat(12.345678))
	assert.Equal(t, "7", formatInt(7))
}
