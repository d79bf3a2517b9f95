// Package split partitions a labelled dataset into train and test sets.
package split

import (
	"fmt"
	"math"
	"math/rand/v2"

	apperrors "hrcli/internal/errors"
)

// Set is one side of a partition. Indices hold the original row positions.
type Set struct {
	X       [][]float64
	Y       []int
	Indices []int
}

// Len returns the number of rows in the set.
func (s Set) Len() int {
	return len(s.Y)
}

// Split shuffles rows with a generator seeded by seed and assigns the first
// ceil(testFraction*n) of them to the test set. Identical inputs always
// produce identical partitions. Class balance is not preserved.
func Split(x [][]float64, y []int, testFraction float64, seed uint64) (train, test Set, err error) {
	if math.IsNaN(testFraction) || testFraction <= 0 || testFraction >= 1 {
		return Set{}, Set{}, apperrors.NewInvalidFractionError(testFraction)
	}
	if len(x) != len(y) {
		return Set{}, Set{}, apperrors.NewInsufficientDataError(
			fmt.Sprintf("feature rows (%d) and labels (%d) differ in length", len(x), len(y)))
	}

	n := len(y)
	nTest := int(math.Ceil(testFraction * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return Set{}, Set{}, apperrors.NewInsufficientDataError(
			fmt.Sprintf("cannot split %d rows with test fraction %v", n, testFraction)).
			WithContext("rows", n)
	}

	perm := Permutation(n, seed)
	test = subset(x, y, perm[:nTest])
	train = subset(x, y, perm[nTest:])
	return train, test, nil
}

// Permutation returns a seeded permutation of [0,n).
func Permutation(n int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return rng.Perm(n)
}

func subset(x [][]float64, y []int, idx []int) Set {
	s := Set{
		X:       make([][]float64, len(idx)),
		Y:       make([]int, len(idx)),
		Indices: make([]int, len(idx)),
	}
	for i, j := range idx {
		s.X[i] = x[j]
		s.Y[i] = y[j]
		s.Indices[i] = j
	}
	return s
}
