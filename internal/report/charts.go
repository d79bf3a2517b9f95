package report

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"hrcli/internal/analysis"
)

// Chart geometry in SVG user units
const (
	chartWidth   = 720
	chartHeight  = 320
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 20
	marginBottom = 70
)

const (
	colorAge        = "#87ceeb" // skyblue
	colorTenure     = "#90ee90" // lightgreen
	colorEntries    = "#f08080" // lightcoral
	colorImportance = "#add8e6" // lightblue
)

type svgBuilder struct {
	b strings.Builder
}

func newSVG(title string) *svgBuilder {
	s := &svgBuilder{}
	fmt.Fprintf(&s.b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-label="%s">`,
		chartWidth, chartHeight, template.HTMLEscapeString(title))
	return s
}

func (s *svgBuilder) rect(x, y, w, h float64, fill string) {
	fmt.Fprintf(&s.b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="#555" stroke-width="0.5"/>`,
		x, y, w, h, fill)
}

func (s *svgBuilder) line(x1, y1, x2, y2 float64) {
	fmt.Fprintf(&s.b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#333" stroke-width="1"/>`, x1, y1, x2, y2)
}

func (s *svgBuilder) text(x, y float64, anchor, label string, rotate bool) {
	transform := ""
	if rotate {
		transform = fmt.Sprintf(` transform="rotate(-45 %.2f %.2f)"`, x, y)
	}
	fmt.Fprintf(&s.b, `<text x="%.2f" y="%.2f" font-size="11" text-anchor="%s"%s>%s</text>`,
		x, y, anchor, transform, template.HTMLEscapeString(label))
}

func (s *svgBuilder) html() template.HTML {
	s.b.WriteString(`</svg>`)
	return template.HTML(s.b.String())
}

// axes draws the plot frame and a y axis from 0 to top with five ticks.
func (s *svgBuilder) axes(top float64, format func(float64) string) {
	plotH := float64(chartHeight - marginTop - marginBottom)
	bottom := float64(chartHeight - marginBottom)
	s.line(marginLeft, marginTop, marginLeft, bottom)
	s.line(marginLeft, bottom, chartWidth-marginRight, bottom)
	for i := 0; i <= 4; i++ {
		v := top * float64(i) / 4
		y := bottom - plotH*float64(i)/4
		s.line(marginLeft-4, y, marginLeft, y)
		s.text(marginLeft-6, y+4, "end", format(v), false)
	}
}

func niceMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

// barChart draws one vertical bar per label.
func barChart(title string, labels []string, values []float64, fill string, format func(float64) string) template.HTML {
	s := newSVG(title)
	if len(values) == 0 {
		return s.html()
	}

	top := 0.0
	for _, v := range values {
		top = math.Max(top, v)
	}
	top = niceMax(top)
	s.axes(top, format)

	plotW := float64(chartWidth - marginLeft - marginRight)
	plotH := float64(chartHeight - marginTop - marginBottom)
	bottom := float64(chartHeight - marginBottom)
	slot := plotW / float64(len(values))
	rotate := len(values) > 12
	for i, v := range values {
		h := plotH * v / top
		x := marginLeft + float64(i)*slot
		s.rect(x+slot*0.1, bottom-h, slot*0.8, h, fill)
		s.text(x+slot/2, bottom+14, "middle", labels[i], rotate)
	}
	return s.html()
}

// horizontalBarChart draws one horizontal bar per label, top to bottom.
func horizontalBarChart(title string, labels []string, values []float64, fill string) template.HTML {
	s := newSVG(title)
	if len(values) == 0 {
		return s.html()
	}

	top := 0.0
	for _, v := range values {
		top = math.Max(top, v)
	}
	if top <= 0 {
		top = 1
	}

	left := 150.0
	plotW := float64(chartWidth-marginRight) - left
	plotH := float64(chartHeight - marginTop - 30)
	slot := plotH / float64(len(values))
	s.line(left, marginTop, left, marginTop+plotH)
	for i, v := range values {
		y := marginTop + float64(i)*slot
		w := plotW * v / top
		s.rect(left, y+slot*0.15, w, slot*0.7, fill)
		s.text(left-6, y+slot/2+4, "end", labels[i], false)
		s.text(left+w+4, y+slot/2+4, "start", formatNumber(v), false)
	}
	return s.html()
}

// boxChart draws a box plot per job title.
func boxChart(title string, boxes []analysis.BoxStats, fill string) template.HTML {
	s := newSVG(title)
	if len(boxes) == 0 {
		return s.html()
	}

	top := 0.0
	for _, b := range boxes {
		top = math.Max(top, b.Max)
	}
	top = niceMax(top)
	s.axes(top, formatNumber)

	plotW := float64(chartWidth - marginLeft - marginRight)
	plotH := float64(chartHeight - marginTop - marginBottom)
	bottom := float64(chartHeight - marginBottom)
	y := func(v float64) float64 { return bottom - plotH*v/top }
	slot := plotW / float64(len(boxes))

	for i, b := range boxes {
		cx := marginLeft + float64(i)*slot + slot/2
		half := slot * 0.3
		s.line(cx, y(b.Min), cx, y(b.Q1))
		s.line(cx, y(b.Q3), cx, y(b.Max))
		s.line(cx-half/2, y(b.Min), cx+half/2, y(b.Min))
		s.line(cx-half/2, y(b.Max), cx+half/2, y(b.Max))
		s.rect(cx-half, y(b.Q3), 2*half, y(b.Q1)-y(b.Q3), fill)
		s.line(cx-half, y(b.Median), cx+half, y(b.Median))
		s.text(cx, bottom+14, "end", b.JobTitle, true)
	}
	return s.html()
}

// Charts holds the rendered SVG figures of the report.
type Charts struct {
	AgeHistogram      template.HTML
	TenureByJob       template.HTML
	EntriesPerYear    template.HTML
	FeatureImportance template.HTML
}

func renderCharts(c analysis.ChartData) Charts {
	var (
		ageLabels []string
		ageCounts []float64
	)
	for _, b := range c.AgeHistogram {
		ageLabels = append(ageLabels, fmt.Sprintf("%.0f", b.Lower))
		ageCounts = append(ageCounts, float64(b.Count))
	}

	var (
		yearLabels []string
		yearCounts []float64
	)
	for _, yc := range c.EntriesPerYear {
		yearLabels = append(yearLabels, fmt.Sprintf("%d", yc.Year))
		yearCounts = append(yearCounts, float64(yc.Count))
	}

	var (
		featLabels []string
		featValues []float64
	)
	for _, fw := range c.FeatureImportance {
		featLabels = append(featLabels, fw.Feature)
		featValues = append(featValues, fw.Importance)
	}

	countFormat := func(v float64) string { return formatCount(int(math.Round(v))) }

	return Charts{
		AgeHistogram:      barChart("Altersverteilung bei Eintritt", ageLabels, ageCounts, colorAge, countFormat),
		TenureByJob:       boxChart("Beschäftigungsdauer nach Position", c.TenureByJob, colorTenure),
		EntriesPerYear:    barChart("Eintritte pro Jahr", yearLabels, yearCounts, colorEntries, countFormat),
		FeatureImportance: horizontalBarChart("Feature Importance", featLabels, featValues, colorImportance),
	}
}
