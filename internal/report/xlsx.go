package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"hrcli/internal/analysis"
)

// Workbook sheet names
const (
	SheetFeatures   = "Merkmale"
	SheetStatistics = "Statistik"
)

// featureHeaders are the columns of the derived feature table.
var featureHeaders = []string{
	"Personalnummer",
	"Alter_bei_Eintritt",
	"Beschaeftigungsdauer",
	"Monat_Eintritt",
	"Jahr_Eintritt",
	"Alter_Kategorie",
	"Berufsbezeichnung",
	"Berufsbezeichnung_encoded",
	"Hat_gekuendigt",
}

// featureRows converts the derived features into CSV rows.
func featureRows(out *analysis.Outcome) [][]string {
	rows := make([][]string, len(out.Features.Rows))
	for i, d := range out.Features.Rows {
		rows[i] = []string{
			d.EmployeeID,
			formatFloat(d.AgeAtEntry),
			formatFloat(d.TenureYears),
			formatInt(d.EntryMonth),
			formatInt(d.EntryYear),
			d.AgeBucket.Label(),
			d.JobTitle,
			formatInt(d.JobTitleCode),
			formatInt(d.Label()),
		}
	}
	return rows
}

// WriteWorkbook saves the feature table and summary statistics as an Excel file.
func WriteWorkbook(path string, out *analysis.Outcome) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetFeatures); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeFeatureSheet(f, out); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetStatistics); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeStatisticsSheet(f, out); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeFeatureSheet(f *excelize.File, out *analysis.Outcome) error {
	header := make([]interface{}, len(featureHeaders))
	for i, h := range featureHeaders {
		header[i] = h
	}
	if err := setRow(f, SheetFeatures, 1, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, d := range out.Features.Rows {
		values := []interface{}{
			d.EmployeeID,
			d.AgeAtEntry,
			d.TenureYears,
			d.EntryMonth,
			d.EntryYear,
			d.AgeBucket.Label(),
			d.JobTitle,
			d.JobTitleCode,
			d.Label(),
		}
		if err := setRow(f, SheetFeatures, i+2, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.SetPanes(SheetFeatures, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeStatisticsSheet(f *excelize.File, out *analysis.Outcome) error {
	res := out.Results
	rows := [][]interface{}{
		{"Kennzahl", "Wert"},
		{"Gesamtzahl Mitarbeiter", res.BasicStats.TotalEmployees},
		{"Durchschnittsalter bei Eintritt", res.BasicStats.AverageAgeAtEntry},
		{"Durchschnittliche Beschäftigungsdauer", res.BasicStats.AverageEmploymentDuration},
		{"Modell-Genauigkeit", res.ModelPerformance.Accuracy},
		{"Stichtag", formatDate(out.Meta.ReferenceTime)},
		{"Lauf", out.Meta.RunID},
		{},
		{"Merkmal", "Gewicht"},
	}
	for _, fw := range res.FeatureImportance {
		rows = append(rows, []interface{}{fw.Feature, fw.Importance})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Jahr", "Eintritte"})
	for _, y := range res.VisualizationStats.YearsAnalyzed {
		rows = append(rows, []interface{}{y, res.VisualizationStats.EntriesPerYear[y]})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, SheetStatistics, i+1, row); err != nil {
			return fmt.Errorf("write statistics row %d: %w", i+1, err)
		}
	}
	return nil
}
