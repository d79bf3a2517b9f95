package analysis

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"hrcli/internal/evaluation"
	"hrcli/internal/features"
)

// Results is the analysis outcome consumed by report renderers. It encodes to
// exactly four top-level JSON keys.
type Results struct {
	BasicStats         BasicStats                 `json:"basic_stats"`
	VisualizationStats VisualizationStats         `json:"visualization_stats"`
	ModelPerformance   ModelPerformance           `json:"model_performance"`
	FeatureImportance  []evaluation.FeatureWeight `json:"feature_importance"`
}

// BasicStats describes the whole dataset.
type BasicStats struct {
	TotalEmployees            int            `json:"total_employees"`
	AverageAgeAtEntry         float64        `json:"average_age_at_entry"`
	AverageEmploymentDuration float64        `json:"average_employment_duration"`
	JobDistribution           map[string]int `json:"job_distribution"`
}

// VisualizationStats holds the entry counts shown in the yearly chart.
type VisualizationStats struct {
	YearsAnalyzed  []int       `json:"years_analyzed"`
	EntriesPerYear map[int]int `json:"entries_per_year"`
}

// ModelPerformance summarises the classifier on the test set.
type ModelPerformance struct {
	Accuracy             float64              `json:"accuracy"`
	ClassificationReport ClassificationReport `json:"classification_report"`
}

// ClassificationReport holds per-class and averaged scores. It encodes with
// one key per class label followed by "accuracy", "macro avg" and
// "weighted avg".
type ClassificationReport struct {
	Classes     map[int]evaluation.ClassScore
	Accuracy    float64
	MacroAvg    evaluation.ClassScore
	WeightedAvg evaluation.ClassScore
}

// MarshalJSON writes the report keys in label order.
func (r ClassificationReport) MarshalJSON() ([]byte, error) {
	labels := make([]int, 0, len(r.Classes))
	for l := range r.Classes {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, v interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	for _, l := range labels {
		if err := write(strconv.Itoa(l), r.Classes[l]); err != nil {
			return nil, err
		}
	}
	if err := write("accuracy", r.Accuracy); err != nil {
		return nil, err
	}
	if err := write("macro avg", r.MacroAvg); err != nil {
		return nil, err
	}
	if err := write("weighted avg", r.WeightedAvg); err != nil {
		return nil, err
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func newClassificationReport(m *evaluation.Metrics) ClassificationReport {
	classes := make(map[int]evaluation.ClassScore, len(m.PerClass))
	for l, s := range m.PerClass {
		classes[l] = s
	}
	return ClassificationReport{
		Classes:     classes,
		Accuracy:    m.Accuracy,
		MacroAvg:    m.MacroAvg,
		WeightedAvg: m.WeightedAvg,
	}
}

func basicStats(rows []features.Derived) BasicStats {
	stats := BasicStats{
		TotalEmployees:  len(rows),
		JobDistribution: make(map[string]int),
	}
	if len(rows) == 0 {
		return stats
	}

	var age, tenure float64
	for _, r := range rows {
		age += r.AgeAtEntry
		tenure += r.TenureYears
		stats.JobDistribution[r.JobTitle]++
	}
	stats.AverageAgeAtEntry = age / float64(len(rows))
	stats.AverageEmploymentDuration = tenure / float64(len(rows))
	return stats
}

func visualizationStats(rows []features.Derived) VisualizationStats {
	stats := VisualizationStats{
		YearsAnalyzed:  []int{},
		EntriesPerYear: make(map[int]int),
	}
	for _, r := range rows {
		stats.EntriesPerYear[r.EntryYear]++
	}
	for y := range stats.EntriesPerYear {
		stats.YearsAnalyzed = append(stats.YearsAnalyzed, y)
	}
	sort.Ints(stats.YearsAnalyzed)
	return stats
}

func assembleResults(set *features.Set, m *evaluation.Metrics) *Results {
	return &Results{
		BasicStats:         basicStats(set.Rows),
		VisualizationStats: visualizationStats(set.Rows),
		ModelPerformance: ModelPerformance{
			Accuracy:             m.Accuracy,
			ClassificationReport: newClassificationReport(m),
		},
		FeatureImportance: m.FeatureImportance,
	}
}
