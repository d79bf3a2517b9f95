package forest

import (
	"math/rand/v2"
	"sort"
)

const leaf = -1

// node is one entry of a flattened decision tree. Leaves have feature == leaf.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	proba     []float64
}

// tree is a CART classifier grown on class indices 0..nClasses-1.
type tree struct {
	nodes []node
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	nClasses    int
	nFeatures   int
	maxFeatures int
	minSplit    int
	maxDepth    int
	rng         *rand.Rand

	nodes       []node
	importances []float64
}

// growTree fits a tree on the rows listed in samples. Rows may repeat.
func growTree(x [][]float64, y []int, samples []int, nClasses, maxFeatures, minSplit, maxDepth int, rng *rand.Rand) (*tree, []float64) {
	b := &treeBuilder{
		x:           x,
		y:           y,
		nClasses:    nClasses,
		nFeatures:   len(x[0]),
		maxFeatures: maxFeatures,
		minSplit:    minSplit,
		maxDepth:    maxDepth,
		rng:         rng,
		importances: make([]float64, len(x[0])),
	}
	b.build(samples, 0)
	return &tree{nodes: b.nodes}, b.importances
}

func (b *treeBuilder) counts(samples []int) []float64 {
	c := make([]float64, b.nClasses)
	for _, s := range samples {
		c[b.y[s]]++
	}
	return c
}

// build appends the subtree for samples and returns its node index.
func (b *treeBuilder) build(samples []int, depth int) int {
	counts := b.counts(samples)
	n := float64(len(samples))
	impurity := gini(counts, n)

	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{feature: leaf, proba: normalize(counts, n)})

	if impurity == 0 || len(samples) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return idx
	}

	sp, ok := b.bestSplit(samples, impurity)
	if !ok {
		return idx
	}

	left := make([]int, 0, sp.nLeft)
	right := make([]int, 0, len(samples)-sp.nLeft)
	for _, s := range samples {
		if b.x[s][sp.feature] <= sp.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	b.importances[sp.feature] += sp.decrease

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx] = node{feature: sp.feature, threshold: sp.threshold, left: l, right: r}
	return idx
}

type split struct {
	feature   int
	threshold float64
	nLeft     int
	decrease  float64
}

// bestSplit searches a random subset of maxFeatures non-constant features for
// the threshold with the lowest weighted child Gini impurity. Constant
// features do not count towards the subset.
func (b *treeBuilder) bestSplit(samples []int, impurity float64) (split, bool) {
	n := float64(len(samples))
	order := b.rng.Perm(b.nFeatures)
	sorted := make([]int, len(samples))

	var (
		best    split
		found   bool
		bestImp float64
		visited int
	)

	for _, f := range order {
		if visited >= b.maxFeatures {
			break
		}

		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})
		lo, hi := b.x[sorted[0]][f], b.x[sorted[len(sorted)-1]][f]
		if lo == hi {
			continue
		}
		visited++

		left := make([]float64, b.nClasses)
		right := b.counts(sorted)
		for i := 0; i < len(sorted)-1; i++ {
			c := b.y[sorted[i]]
			left[c]++
			right[c]--

			v, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if v == next {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			childImp := (nl*gini(left, nl) + nr*gini(right, nr)) / n
			if !found || childImp < bestImp {
				found = true
				bestImp = childImp
				best = split{feature: f, threshold: midpoint(v, next), nLeft: i + 1}
			}
		}
	}

	if !found {
		return split{}, false
	}
	best.decrease = n * (impurity - bestImp)
	return best, true
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func normalize(counts []float64, n float64) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / n
	}
	return out
}

// leafProba walks the tree for row and returns the class distribution of its leaf.
func (t *tree) leafProba(row []float64) []float64 {
	i := 0
	for {
		nd := &t.nodes[i]
		if nd.feature == leaf {
			return nd.proba
		}
		if row[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

func (t *tree) nodeCount() int {
	return len(t.nodes)
}
