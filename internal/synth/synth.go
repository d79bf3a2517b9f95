// Package synth generates fictitious employee records for demos and tests.
package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"hrcli/internal/records"
	"hrcli/pkg/contracts/domain"
)

// FirstEmployeeID is the Personalnummer of the first generated record.
const FirstEmployeeID = 1000

// Sample values
var (
	JobTitles = []string{"Data Scientist", "Software Engineer", "Product Manager", "HR Specialist", "Sales Executive"}
	Companies = []string{"Company A", "Company B", "Company C"}
	Names     = []string{
		"Lena Müller", "Maximilian Weber", "Laura Fischer", "Jonas Schäfer", "Mia Hoffmann",
		"Alexander Wagner", "Sophie Keller", "Lukas Neumann", "Hannah Meier", "Felix Braun",
		"Lea Richter", "Paul Zimmermann", "Nina Krause", "Leon Becker", "Emilia Klein",
		"Marie Wolf", "Jan Schröder", "Sara Frank", "Daniel Weiß", "Lara Schmitt",
	}
)

// Generation rates
const (
	ExitRate    = 0.2
	ReentryRate = 0.1
)

type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(now time.Time, seed uint64) *generator {
	return &generator{
		rng: rand.New(rand.NewPCG(seed, seed+1)),
		now: domain.Date(now),
	}
}

// between returns a uniform integer in [lo, hi].
func (g *generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *generator) daysAgo(lo, hi int) time.Time {
	return g.now.AddDate(0, 0, -g.between(lo, hi))
}

func (g *generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

// record creates one employee. Birth lies 9000 to 20000 days and entry 100 to
// 5000 days before now. A departure happens 1 to 2000 days after entry and a
// reentry 30 to 1000 days after the departure.
func (g *generator) record(i int, departs func() bool) domain.EmployeeRecord {
	rec := domain.EmployeeRecord{
		EmployeeID: strconv.Itoa(FirstEmployeeID + i),
		BirthDate:  g.daysAgo(9000, 20000),
		EntryDate:  g.daysAgo(100, 5000),
	}

	if departs() {
		exit := rec.EntryDate.AddDate(0, 0, g.between(1, 2000))
		rec.ExitDate = &exit
		if g.rng.Float64() < ReentryRate {
			reentry := exit.AddDate(0, 0, g.between(30, 1000))
			rec.ReentryDate = &reentry
		}
	}

	rec.JobTitle = g.pick(JobTitles)
	rec.Company = g.pick(Companies)
	rec.Name = g.pick(Names)
	return rec
}

// Generate returns n records in which about one in five employees has left.
// The same seed and now always produce the same records.
func Generate(n int, now time.Time, seed uint64) []domain.EmployeeRecord {
	g := newGenerator(now, seed)
	out := make([]domain.EmployeeRecord, n)
	for i := range out {
		out[i] = g.record(i, func() bool { return g.rng.Float64() < ExitRate })
	}
	return out
}

// GenerateFixed returns departed records with an exit date followed by
// current records without one.
func GenerateFixed(departed, current int, now time.Time, seed uint64) []domain.EmployeeRecord {
	g := newGenerator(now, seed)
	out := make([]domain.EmployeeRecord, departed+current)
	for i := range out {
		leaves := i < departed
		out[i] = g.record(i, func() bool { return leaves })
	}
	return out
}

var header = []string{
	records.ColName, records.ColEmployeeID, records.ColBirthDate, records.ColEntryDate,
	records.ColExitDate, records.ColReentryDate, records.ColJobTitle, records.ColCompany,
}

func row(r domain.EmployeeRecord) []string {
	return []string{
		r.Name,
		r.EmployeeID,
		r.BirthDate.Format(time.DateOnly),
		r.EntryDate.Format(time.DateOnly),
		formatOptional(r.ExitDate),
		formatOptional(r.ReentryDate),
		r.JobTitle,
		r.Company,
	}
}

// WriteCSV writes records in the input file layout.
func WriteCSV(w io.Writer, recs []domain.EmployeeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range recs {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// WriteWorkbook saves records as an Excel file with a single Mitarbeiter
// sheet. Dates are written as YYYY-MM-DD text.
func WriteWorkbook(path string, recs []domain.EmployeeRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", records.PreferredSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(records.PreferredSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}
	if err := sw.SetRow("A1", toCells(header)); err != nil {
		return err
	}
	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row(r))); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
