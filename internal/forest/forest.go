// Package forest implements a bagged ensemble of CART decision trees for
// classification.
//
// Trees are grown on bootstrap samples with Gini impurity and a random subset
// of features per split. Predictions average the leaf class distributions of
// all trees. Fitting is parallel across trees but the fitted model depends
// only on the data and Options.Seed.
package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	apperrors "hrcli/internal/errors"
)

const (
	// DefaultEstimators is the number of trees grown when Options.Estimators is zero.
	DefaultEstimators = 100
	DefaultSeed       = 42
)

// Options controls model fitting.
type Options struct {
	Estimators int
	Seed       uint64
	// MaxFeatures is the number of features considered per split.
	// Zero means floor(sqrt(features)), at least 1.
	MaxFeatures int
	// MinSamplesSplit is the smallest node that may be split. Zero means 2.
	MinSamplesSplit int
	// MaxDepth limits tree depth. Zero grows trees until leaves are pure.
	MaxDepth int
	// Workers bounds parallel tree fitting. Zero means GOMAXPROCS.
	Workers      int
	FeatureNames []string
}

// DefaultOptions returns the options used by the analysis pipeline. Callers
// override Estimators, Seed and Workers from the run parameters.
func DefaultOptions() Options {
	return Options{Estimators: DefaultEstimators, Seed: DefaultSeed}
}

// Model is a fitted forest.
type Model struct {
	trees        []*tree
	classes      []int
	nFeatures    int
	featureNames []string
	importances  []float64
}

// Fit grows the forest on x and y.
func Fit(ctx context.Context, x [][]float64, y []int, opts Options) (*Model, error) {
	if len(x) == 0 {
		return nil, apperrors.NewInsufficientDataError("training set is empty")
	}
	if len(x) != len(y) {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("feature rows (%d) and labels (%d) differ in length", len(x), len(y)))
	}
	nFeatures := len(x[0])
	if nFeatures == 0 {
		return nil, apperrors.NewSchemaError("training rows have no features")
	}
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("row %d has %d features, expected %d", i, len(row), nFeatures))
		}
	}
	if opts.FeatureNames != nil && len(opts.FeatureNames) != nFeatures {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("%d feature names for %d features", len(opts.FeatureNames), nFeatures))
	}

	classes, encoded := encodeClasses(y)
	if len(classes) < 2 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("training labels contain %d distinct class(es), need at least 2", len(classes))).
			WithContext("rows", len(y))
	}

	opts = withDefaults(opts, nFeatures)

	// Seeds are drawn before any tree is grown so the model does not depend
	// on goroutine scheduling.
	master := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5851f42d4c957f2d))
	seeds := make([]uint64, opts.Estimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]*tree, opts.Estimators)
	treeImportances := make([][]float64, opts.Estimators)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			samples := bootstrap(len(x), rng)
			trees[i], treeImportances[i] = growTree(x, encoded, samples, len(classes),
				opts.MaxFeatures, opts.MinSamplesSplit, opts.MaxDepth, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := opts.FeatureNames
	if names == nil {
		names = make([]string, nFeatures)
		for i := range names {
			names[i] = fmt.Sprintf("feature_%d", i)
		}
	}

	return &Model{
		trees:        trees,
		classes:      classes,
		nFeatures:    nFeatures,
		featureNames: names,
		importances:  aggregateImportances(trees, treeImportances, nFeatures),
	}, nil
}

func withDefaults(opts Options, nFeatures int) Options {
	if opts.Estimators <= 0 {
		opts.Estimators = DefaultEstimators
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = int(math.Sqrt(float64(nFeatures)))
	}
	if opts.MaxFeatures < 1 {
		opts.MaxFeatures = 1
	}
	if opts.MaxFeatures > nFeatures {
		opts.MaxFeatures = nFeatures
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return opts
}

// encodeClasses maps labels to indices of their sorted distinct values.
func encodeClasses(y []int) ([]int, []int) {
	seen := make(map[int]bool)
	for _, v := range y {
		seen[v] = true
	}
	classes := make([]int, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	encoded := make([]int, len(y))
	for i, v := range y {
		encoded[i] = index[v]
	}
	return classes, encoded
}

func bootstrap(n int, rng *rand.Rand) []int {
	samples := make([]int, n)
	for i := range samples {
		samples[i] = rng.IntN(n)
	}
	return samples
}

// aggregateImportances averages the normalised impurity decrease of every
// tree that split at least once. Without any split the weights are uniform.
func aggregateImportances(trees []*tree, perTree [][]float64, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	used := 0
	for i, t := range trees {
		if t.nodeCount() <= 1 {
			continue
		}
		total := 0.0
		for _, v := range perTree[i] {
			total += v
		}
		if total <= 0 {
			continue
		}
		for f, v := range perTree[i] {
			out[f] += v / total
		}
		used++
	}

	if used == 0 {
		for f := range out {
			out[f] = 1 / float64(nFeatures)
		}
		return out
	}

	sum := 0.0
	for f := range out {
		out[f] /= float64(used)
		sum += out[f]
	}
	for f := range out {
		out[f] /= sum
	}
	return out
}

// Classes returns the class labels in the column order of PredictProba.
func (m *Model) Classes() []int {
	return append([]int(nil), m.classes...)
}

// FeatureNames returns the names of the input columns.
func (m *Model) FeatureNames() []string {
	return append([]string(nil), m.featureNames...)
}

// Estimators returns the number of trees.
func (m *Model) Estimators() int {
	return len(m.trees)
}

// NodeCount returns the total number of nodes across all trees.
func (m *Model) NodeCount() int {
	total := 0
	for _, t := range m.trees {
		total += t.nodeCount()
	}
	return total
}

// FeatureImportances returns the mean decrease in impurity per feature.
// The weights are non-negative and sum to 1.
func (m *Model) FeatureImportances() []float64 {
	return append([]float64(nil), m.importances...)
}

// PredictProba returns per-row class probabilities averaged over all trees.
func (m *Model) PredictProba(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != m.nFeatures {
			return nil, apperrors.NewSchemaError(
				fmt.Sprintf("row %d has %d features, expected %d", i, len(row), m.nFeatures))
		}
		p := make([]float64, len(m.classes))
		for _, t := range m.trees {
			for c, v := range t.leafProba(row) {
				p[c] += v
			}
		}
		for c := range p {
			p[c] /= float64(len(m.trees))
		}
		out[i] = p
	}
	return out, nil
}

// Predict returns the most probable class per row. Ties go to the lower class.
func (m *Model) Predict(x [][]float64) ([]int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		best := 0
		for c := 1; c < len(p); c++ {
			if p[c] > p[best] {
				best = c
			}
		}
		out[i] = m.classes[best]
	}
	return out, nil
}
