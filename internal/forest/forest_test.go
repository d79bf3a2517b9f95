package forest

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hrcli/internal/errors"
)

// separable returns rows whose label is 1 exactly when the first feature exceeds 50.
// The second feature is noise.
func separable(n int, seed uint64) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(seed, 1))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		v := rng.Float64() * 100
		x[i] = []float64{v, rng.Float64()}
		if v > 50 {
			y[i] = 1
		}
	}
	return x, y
}

func accuracy(pred, truth []int) float64 {
	hits := 0
	for i := range pred {
		if pred[i] == truth[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(pred))
}

func TestFit_LearnsSeparableData(t *testing.T) {
	x, y := separable(200, 1)
	xt, yt := separable(100, 2)

	model, err := Fit(context.Background(), x, y, Options{Estimators: 25, Seed: 42})
	require.NoError(t, err)

	pred, err := model.Predict(xt)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, accuracy(pred, yt), 0.9)

	imp := model.FeatureImportances()
	require.Len(t, imp, 2)
	assert.Greater(t, imp[0], imp[1])
}

func TestFit_Deterministic(t *testing.T) {
	x, y := separable(120, 3)
	xt, _ := separable(50, 4)

	fit := func(workers int) ([][]float64, []float64) {
		model, err := Fit(context.Background(), x, y, Options{Estimators: 30, Seed: 7, Workers: workers})
		require.NoError(t, err)
		proba, err := model.PredictProba(xt)
		require.NoError(t, err)
		return proba, model.FeatureImportances()
	}

	p1, imp1 := fit(1)
	p2, imp2 := fit(8)
	p3, imp3 := fit(8)

	assert.Equal(t, p1, p2)
	assert.Equal(t, p2, p3)
	assert.Equal(t, imp1, imp2)
	assert.Equal(t, imp2, imp3)
}

func TestFit_Defaults(t *testing.T) {
	x, y := separable(20, 5)

	model, err := Fit(context.Background(), x, y, Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultEstimators, model.Estimators())
	assert.Equal(t, []string{"feature_0", "feature_1"}, model.FeatureNames())
	assert.Equal(t, []int{0, 1}, model.Classes())
	assert.Greater(t, model.NodeCount(), model.Estimators())
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, DefaultEstimators, opts.Estimators)
	assert.Equal(t, uint64(DefaultSeed), opts.Seed)
	assert.Zero(t, opts.MaxFeatures)
	assert.Zero(t, opts.MaxDepth)

	x, y := separable(30, 9)
	opts.Estimators = 10
	a, err := Fit(context.Background(), x, y, opts)
	require.NoError(t, err)
	b, err := Fit(context.Background(), x, y, Options{Estimators: 10, Seed: DefaultSeed})
	require.NoError(t, err)

	assert.Equal(t, a.FeatureImportances(), b.FeatureImportances())
	assert.Equal(t, a.NodeCount(), b.NodeCount())
}

func TestFit_ImportancesSumToOne(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	x := make([][]float64, 80)
	y := make([]int, 80)
	for i := range x {
		x[i] = []float64{float64(rng.IntN(12) + 1), float64(2000 + rng.IntN(15)), 20 + rng.Float64()*30, float64(rng.IntN(5))}
		y[i] = rng.IntN(2)
	}

	model, err := Fit(context.Background(), x, y, Options{Estimators: 50, Seed: 42,
		FeatureNames: []string{"a", "b", "c", "d"}})
	require.NoError(t, err)

	sum := 0.0
	for _, w := range model.FeatureImportances() {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestFit_UniformImportancesWithoutSplits(t *testing.T) {
	// Identical rows with mixed labels can never be split.
	x := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	y := []int{0, 1, 0, 1}

	model, err := Fit(context.Background(), x, y, Options{Estimators: 5, Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 0.5}, model.FeatureImportances())
	assert.Equal(t, 5, model.NodeCount())
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		x       [][]float64
		y       []int
		opts    Options
		wantErr error
	}{
		{"empty", nil, nil, Options{}, apperrors.ErrInsufficientData},
		{"single label", [][]float64{{1}, {2}, {3}}, []int{1, 1, 1}, Options{}, apperrors.ErrInsufficientData},
		{"length mismatch", [][]float64{{1}, {2}}, []int{0}, Options{}, apperrors.ErrInsufficientData},
		{"ragged rows", [][]float64{{1, 2}, {3}}, []int{0, 1}, Options{}, apperrors.ErrSchema},
		{"no features", [][]float64{{}, {}}, []int{0, 1}, Options{}, apperrors.ErrSchema},
		{"wrong name count", [][]float64{{1}, {2}}, []int{0, 1}, Options{FeatureNames: []string{"a", "b"}}, apperrors.ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(context.Background(), tt.x, tt.y, tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFit_Cancelled(t *testing.T) {
	x, y := separable(50, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fit(ctx, x, y, Options{Estimators: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredict(t *testing.T) {
	x, y := separable(100, 6)
	model, err := Fit(context.Background(), x, y, Options{Estimators: 10, Seed: 3})
	require.NoError(t, err)

	t.Run("probabilities sum to one", func(t *testing.T) {
		proba, err := model.PredictProba([][]float64{{10, 0.5}, {90, 0.5}})
		require.NoError(t, err)
		for _, p := range proba {
			assert.InDelta(t, 1.0, p[0]+p[1], 1e-9)
		}
		assert.Greater(t, proba[0][0], proba[0][1])
		assert.Greater(t, proba[1][1], proba[1][0])
	})

	t.Run("wrong width", func(t *testing.T) {
		_, err := model.Predict([][]float64{{1}})
		assert.ErrorIs(t, err, apperrors.ErrSchema)
	})

	t.Run("empty input", func(t *testing.T) {
		pred, err := model.Predict(nil)
		require.NoError(t, err)
		assert.Empty(t, pred)
	})
}

func TestPredict_TieGoesToLowerClass(t *testing.T) {
	m := &Model{
		trees:     []*tree{{nodes: []node{{feature: leaf, proba: []float64{0.5, 0.5}}}}},
		classes:   []int{0, 1},
		nFeatures: 1,
	}

	pred, err := m.Predict([][]float64{{3}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pred)
}

func TestPredict_NonContiguousLabels(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []int{3, 3, 3, 7, 7, 7}

	model, err := Fit(context.Background(), x, y, Options{Estimators: 20, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, model.Classes())

	pred, err := model.Predict([][]float64{{0}, {20}})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, pred)
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, gini([]float64{4, 0}, 4))
	assert.Equal(t, 0.5, gini([]float64{2, 2}, 4))
	assert.Equal(t, 0.0, gini([]float64{0, 0}, 0))
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, 1.5, midpoint(1, 2))
	next := math.Nextafter(1, 2)
	assert.Equal(t, 1.0, midpoint(1, next))
}
