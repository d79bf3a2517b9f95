// Package evaluation scores a fitted classifier on held-out data.
package evaluation

import (
	"fmt"
	"sort"

	apperrors "hrcli/internal/errors"
)

// Model is the part of a fitted classifier that evaluation needs.
type Model interface {
	Predict(x [][]float64) ([]int, error)
	FeatureImportances() []float64
	FeatureNames() []string
}

// ClassScore holds precision, recall and F1 for one class or an average.
type ClassScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// FeatureWeight is one entry of the feature importance ranking.
type FeatureWeight struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Metrics is the evaluation of a model on a test set.
type Metrics struct {
	Accuracy float64
	// Labels lists every class seen in the truth or the predictions, ascending.
	Labels            []int
	PerClass          map[int]ClassScore
	MacroAvg          ClassScore
	WeightedAvg       ClassScore
	Predictions       []int
	FeatureImportance []FeatureWeight
}

// Evaluate predicts x with model and compares the result to y.
func Evaluate(model Model, x [][]float64, y []int) (*Metrics, error) {
	if len(y) == 0 {
		return nil, apperrors.NewInsufficientDataError("test set is empty")
	}
	if len(x) != len(y) {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("feature rows (%d) and labels (%d) differ in length", len(x), len(y)))
	}

	pred, err := model.Predict(x)
	if err != nil {
		return nil, err
	}

	m, err := Score(y, pred)
	if err != nil {
		return nil, err
	}
	m.FeatureImportance = Rank(model.FeatureNames(), model.FeatureImportances())
	return m, nil
}

// Score computes accuracy and per-class scores of pred against truth.
// Ratios with a zero denominator are 0.
func Score(truth, pred []int) (*Metrics, error) {
	if len(truth) == 0 {
		return nil, apperrors.NewInsufficientDataError("no labels to score")
	}
	if len(pred) != len(truth) {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("predictions (%d) and labels (%d) differ in length", len(pred), len(truth)))
	}

	labels := unionLabels(truth, pred)

	tp := make(map[int]int, len(labels))
	predicted := make(map[int]int, len(labels))
	support := make(map[int]int, len(labels))
	hits := 0
	for i := range truth {
		support[truth[i]]++
		predicted[pred[i]]++
		if truth[i] == pred[i] {
			tp[truth[i]]++
			hits++
		}
	}

	m := &Metrics{
		Accuracy:    float64(hits) / float64(len(truth)),
		Labels:      labels,
		PerClass:    make(map[int]ClassScore, len(labels)),
		Predictions: pred,
	}

	total := float64(len(truth))
	for _, l := range labels {
		p := ratio(tp[l], predicted[l])
		r := ratio(tp[l], support[l])
		s := ClassScore{Precision: p, Recall: r, F1: f1(p, r), Support: support[l]}
		m.PerClass[l] = s

		k := float64(len(labels))
		m.MacroAvg.Precision += s.Precision / k
		m.MacroAvg.Recall += s.Recall / k
		m.MacroAvg.F1 += s.F1 / k

		w := float64(s.Support) / total
		m.WeightedAvg.Precision += s.Precision * w
		m.WeightedAvg.Recall += s.Recall * w
		m.WeightedAvg.F1 += s.F1 * w
	}
	m.MacroAvg.Support = len(truth)
	m.WeightedAvg.Support = len(truth)

	return m, nil
}

// Rank pairs names with weights and orders them by descending weight.
// Equal weights keep their input order.
func Rank(names []string, weights []float64) []FeatureWeight {
	out := make([]FeatureWeight, len(weights))
	for i, w := range weights {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(names) {
			name = names[i]
		}
		out[i] = FeatureWeight{Feature: name, Importance: w}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}

func unionLabels(truth, pred []int) []int {
	seen := make(map[int]bool)
	var labels []int
	for _, set := range [][]int{truth, pred} {
		for _, l := range set {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	sort.Ints(labels)
	return labels
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
