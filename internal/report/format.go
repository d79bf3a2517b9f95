package report

import (
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// formatFloat formats a float64 value for CSV output with 4 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// printer formats numbers for the German report.
var printer = message.NewPrinter(language.German)

// formatNumber formats f with two decimals, German style.
func formatNumber(f float64) string {
	return printer.Sprintf("%.2f", f)
}

// formatPercent formats a ratio in [0,1] as a German percentage.
func formatPercent(f float64) string {
	return printer.Sprintf("%.2f %%", f*100)
}

// formatCount formats an integer with German digit grouping.
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// formatDate formats t as DD.MM.YYYY.
func formatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// formatTimestamp formats t as DD.MM.YYYY HH:MM:SS.
func formatTimestamp(t time.Time) string {
	return t.Format("02.01.2006 15:04:05")
}
