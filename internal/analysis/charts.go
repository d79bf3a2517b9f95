package analysis

import (
	"math"
	"sort"

	"hrcli/internal/evaluation"
	"hrcli/internal/features"
)

// AgeHistogramBins is the number of bins of the age-at-entry histogram.
const AgeHistogramBins = 20

// ChartData holds the aggregates drawn by the report charts.
type ChartData struct {
	Employees         []EmployeePoint            `json:"employees"`
	EntriesPerYear    []YearCount                `json:"entries_per_year"`
	AgeHistogram      []HistogramBin             `json:"age_histogram"`
	TenureByJob       []BoxStats                 `json:"tenure_by_job"`
	FeatureImportance []evaluation.FeatureWeight `json:"feature_importance"`
}

// EmployeePoint is the per-record input of the charts.
type EmployeePoint struct {
	AgeAtEntry  float64 `json:"age_at_entry"`
	TenureYears float64 `json:"tenure_years"`
	JobTitle    string  `json:"job_title"`
}

// YearCount is the number of entries in one calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// HistogramBin counts values in [Lower, Upper). The last bin includes Upper.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// BoxStats is the five-number summary of tenure for one job title.
type BoxStats struct {
	JobTitle string  `json:"job_title"`
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
}

func buildChartData(set *features.Set, vis VisualizationStats, importance []evaluation.FeatureWeight) ChartData {
	points := make([]EmployeePoint, len(set.Rows))
	ages := make([]float64, len(set.Rows))
	tenures := make(map[string][]float64)
	for i, r := range set.Rows {
		points[i] = EmployeePoint{AgeAtEntry: r.AgeAtEntry, TenureYears: r.TenureYears, JobTitle: r.JobTitle}
		ages[i] = r.AgeAtEntry
		tenures[r.JobTitle] = append(tenures[r.JobTitle], r.TenureYears)
	}

	years := make([]YearCount, len(vis.YearsAnalyzed))
	for i, y := range vis.YearsAnalyzed {
		years[i] = YearCount{Year: y, Count: vis.EntriesPerYear[y]}
	}

	// Boxes follow the first-seen order of job titles.
	var boxes []BoxStats
	for _, title := range set.JobTitles.Values() {
		if vals, ok := tenures[title]; ok {
			boxes = append(boxes, summarize(title, vals))
		}
	}

	return ChartData{
		Employees:         points,
		EntriesPerYear:    years,
		AgeHistogram:      Histogram(ages, AgeHistogramBins),
		TenureByJob:       boxes,
		FeatureImportance: importance,
	}
}

// Histogram splits the range of values into equal-width bins. A constant
// sample is centred in a range of width one.
func Histogram(values []float64, bins int) []HistogramBin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out
}

func summarize(title string, values []float64) BoxStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return BoxStats{
		JobTitle: title,
		Count:    len(sorted),
		Min:      sorted[0],
		Q1:       Quantile(sorted, 0.25),
		Median:   Quantile(sorted, 0.5),
		Q3:       Quantile(sorted, 0.75),
		Max:      sorted[len(sorted)-1],
	}
}

// Quantile returns the q-quantile of sorted using linear interpolation
// between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	i := int(math.Floor(pos))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}
