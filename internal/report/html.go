package report

import (
	"embed"
	"html/template"
	"io"
	"sort"
	"strconv"
	"time"

	"hrcli/internal/analysis"
	"hrcli/internal/evaluation"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

type namedValue struct {
	Name  string
	Value string
}

type namedCount struct {
	Name  string
	Count string
}

type classRow struct {
	Label     string
	Precision string
	Recall    string
	F1        string
	Support   string
}

// htmlView is the template model of report.html. Every number is preformatted.
type htmlView struct {
	GeneratedAt    string
	ReferenceDate  string
	TestFraction   string
	Meta           analysis.RunMetadata
	TotalEmployees string
	Departed       string
	AverageAge     string
	AverageTenure  string
	Jobs           []namedCount
	Charts         Charts
	Accuracy       string
	Classes        []classRow
	Importance     []namedValue
}

var classLabels = map[string]string{
	"0": "Verblieben (0)",
	"1": "Ausgetreten (1)",
}

func newHTMLView(out *analysis.Outcome, generatedAt time.Time) htmlView {
	res := out.Results
	v := htmlView{
		GeneratedAt:    formatTimestamp(generatedAt),
		ReferenceDate:  formatDate(out.Meta.ReferenceTime),
		TestFraction:   formatPercent(out.Meta.TestFraction),
		Meta:           out.Meta,
		TotalEmployees: formatCount(res.BasicStats.TotalEmployees),
		Departed:       formatCount(out.Meta.Departed),
		AverageAge:     formatNumber(res.BasicStats.AverageAgeAtEntry),
		AverageTenure:  formatNumber(res.BasicStats.AverageEmploymentDuration),
		Charts:         renderCharts(out.Charts),
		Accuracy:       formatPercent(res.ModelPerformance.Accuracy),
	}

	for name, n := range res.BasicStats.JobDistribution {
		v.Jobs = append(v.Jobs, namedCount{Name: name, Count: formatCount(n)})
	}
	sort.Slice(v.Jobs, func(i, j int) bool {
		a, b := res.BasicStats.JobDistribution[v.Jobs[i].Name], res.BasicStats.JobDistribution[v.Jobs[j].Name]
		if a != b {
			return a > b
		}
		return v.Jobs[i].Name < v.Jobs[j].Name
	})

	report := res.ModelPerformance.ClassificationReport
	labels := make([]int, 0, len(report.Classes))
	for l := range report.Classes {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	for _, l := range labels {
		key := strconv.Itoa(l)
		name, ok := classLabels[key]
		if !ok {
			name = key
		}
		v.Classes = append(v.Classes, scoreRow(name, report.Classes[l]))
	}
	v.Classes = append(v.Classes,
		scoreRow("Makro-Mittel", report.MacroAvg),
		scoreRow("Gewichtetes Mittel", report.WeightedAvg),
	)

	for _, fw := range res.FeatureImportance {
		v.Importance = append(v.Importance, namedValue{Name: fw.Feature, Value: formatNumber(fw.Importance)})
	}

	return v
}

func scoreRow(label string, s evaluation.ClassScore) classRow {
	return classRow{
		Label:     label,
		Precision: formatNumber(s.Precision),
		Recall:    formatNumber(s.Recall),
		F1:        formatNumber(s.F1),
		Support:   formatCount(s.Support),
	}
}

// RenderHTML writes the German HTML report for out.
func RenderHTML(w io.Writer, out *analysis.Outcome, generatedAt time.Time) error {
	return reportTemplate.Execute(w, newHTMLView(out, generatedAt))
}
