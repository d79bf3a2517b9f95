package records

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "hrcli/internal/errors"
	"hrcli/pkg/contracts/domain"
)

// Input column names
const (
	ColName        = "Name"
	ColEmployeeID  = "Personalnummer"
	ColBirthDate   = "Geburtsdatum"
	ColEntryDate   = "Eintrittsdatum"
	ColExitDate    = "Austrittsdatum"
	ColReentryDate = "Wiedereintritt"
	ColJobTitle    = "Berufsbezeichnung"
	ColCompany     = "Gesellschaft"
)

// RequiredColumns must all be present in the header. Wiedereintritt is optional.
var RequiredColumns = []string{
	ColName, ColEmployeeID, ColBirthDate, ColEntryDate, ColExitDate, ColJobTitle, ColCompany,
}

// PreferredSheet is read from workbooks that contain it; otherwise the first sheet is used.
const PreferredSheet = "Mitarbeiter"

const dateLayout = "2006-01-02"

// nullTokens mark an absent optional date.
var nullTokens = map[string]bool{
	"": true, "null": true, "NULL": true, "NaN": true, "nan": true, "NA": true, "None": true, "NaT": true,
}

// Store loads employee snapshots from CSV or Excel files.
type Store struct {
	logger *slog.Logger
}

// NewStore creates a new record store
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger.With("component", "records")}
}

// Load reads all records from path. The format is chosen by file extension:
// .xlsx is read as a workbook, everything else as CSV.
func (s *Store) Load(ctx context.Context, path string) ([]domain.EmployeeRecord, error) {
	var (
		recs []domain.EmployeeRecord
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		recs, err = s.loadWorkbook(ctx, path)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, apperrors.NewStorageError("open input file", err).WithContext("path", path)
		}
		defer f.Close()
		recs, err = s.ReadCSV(ctx, f)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Loaded employee records",
		slog.String("path", path),
		slog.Int("records", len(recs)))

	return recs, nil
}

// ReadCSV parses a CSV stream with a header row.
func (s *Store) ReadCSV(ctx context.Context, r io.Reader) ([]domain.EmployeeRecord, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewStorageError("read input", err)
	}
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewStorageError("parse CSV", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError("input has no header row")
	}

	return s.parseRows(ctx, rows, false)
}

func (s *Store) loadWorkbook(ctx context.Context, path string) ([]domain.EmployeeRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewSchemaError("workbook has no sheets")
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(strings.TrimSpace(name), PreferredSheet) {
			sheet = name
			break
		}
	}

	// Raw values keep date cells as Excel serial numbers instead of
	// locale-formatted strings.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewStorageError("read sheet", err).WithContext("sheet", sheet)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("sheet %q has no header row", sheet))
	}

	s.logger.DebugContext(ctx, "Reading workbook sheet",
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	return s.parseRows(ctx, rows, true)
}

// parseRows maps the header, checks the schema and converts every data row.
// Row numbers in errors count the header as row 1.
func (s *Store) parseRows(ctx context.Context, rows [][]string, excelSerials bool) ([]domain.EmployeeRecord, error) {
	cols, err := findColumnIndices(rows[0])
	if err != nil {
		return nil, err
	}

	recs := make([]domain.EmployeeRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}

		rec, err := s.parseRecord(ctx, row, cols, rowNum, excelSerials)
		if err != nil {
			s.logger.DebugContext(ctx, "Rejecting input row", slog.Int("row", rowNum), slog.String("error", err.Error()))
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, nil
}

// findColumnIndices maps column names to indices and reports every missing required column.
func findColumnIndices(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, col := range header {
		name := cleanHeader(col)
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}

	var missing []string
	for _, req := range RequiredColumns {
		if _, ok := cols[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError("missing required columns: "+strings.Join(missing, ", ")).
			WithContext("missing", missing)
	}

	return cols, nil
}

func cleanHeader(col string) string {
	col = strings.TrimPrefix(col, "\ufeff")
	col = strings.ReplaceAll(col, "\u200b", "")
	return strings.TrimSpace(col)
}

func (s *Store) parseRecord(ctx context.Context, row []string, cols map[string]int, rowNum int, excelSerials bool) (domain.EmployeeRecord, error) {
	get := func(col string) string {
		idx, ok := cols[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rec := domain.EmployeeRecord{
		EmployeeID: get(ColEmployeeID),
		Name:       get(ColName),
		JobTitle:   get(ColJobTitle),
		Company:    get(ColCompany),
	}

	var err error
	if rec.BirthDate, err = parseRequiredDate(ColBirthDate, get(ColBirthDate), rowNum, excelSerials); err != nil {
		return rec, err
	}
	if rec.EntryDate, err = parseRequiredDate(ColEntryDate, get(ColEntryDate), rowNum, excelSerials); err != nil {
		return rec, err
	}
	if rec.ExitDate, err = parseOptionalDate(ColExitDate, get(ColExitDate), rowNum, excelSerials); err != nil {
		return rec, err
	}

	// Wiedereintritt is informational; an unreadable value is dropped.
	if rec.ReentryDate, err = parseOptionalDate(ColReentryDate, get(ColReentryDate), rowNum, excelSerials); err != nil {
		s.logger.WarnContext(ctx, "Ignoring unreadable reentry date",
			slog.Int("row", rowNum),
			slog.String("value", get(ColReentryDate)))
		rec.ReentryDate = nil
	}

	return rec, nil
}

func parseRequiredDate(col, value string, rowNum int, excelSerials bool) (time.Time, error) {
	if nullTokens[value] {
		return time.Time{}, apperrors.NewMalformedDateError(col, rowNum, value, fmt.Errorf("required date is empty"))
	}
	return parseDate(col, value, rowNum, excelSerials)
}

func parseOptionalDate(col, value string, rowNum int, excelSerials bool) (*time.Time, error) {
	if nullTokens[value] {
		return nil, nil
	}
	t, err := parseDate(col, value, rowNum, excelSerials)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDate accepts YYYY-MM-DD, optionally followed by a midnight time part,
// and Excel serial numbers for workbook input.
func parseDate(col, value string, rowNum int, excelSerials bool) (time.Time, error) {
	if excelSerials {
		if serial, err := strconv.ParseFloat(value, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return time.Time{}, apperrors.NewMalformedDateError(col, rowNum, value, err)
			}
			return domain.Date(t), nil
		}
	}

	datePart := value
	if len(value) > len(dateLayout) {
		rest := value[len(dateLayout):]
		if !isMidnightSuffix(rest) {
			return time.Time{}, apperrors.NewMalformedDateError(col, rowNum, value, fmt.Errorf("unexpected time part %q", rest))
		}
		datePart = value[:len(dateLayout)]
	}

	t, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return time.Time{}, apperrors.NewMalformedDateError(col, rowNum, value, err)
	}
	return t, nil
}

func isMidnightSuffix(s string) bool {
	switch s {
	case "T00:00:00", " 00:00:00", "T00:00:00Z", " 00:00:00.000", "T00:00:00.000":
		return true
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
