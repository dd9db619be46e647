package dp

import "github.com/milosgajdos/go-approx/vec"

// tables holds the memo tables of a single solver run.
// Every table is indexed by [node][mode id].
type tables struct {
	cats    []*catalog
	reached [][]bool
	cost    [][][]float64
	prev    [][]int
	state   [][][]float64
	// timers is indexed by [constraint][node][mode id]
	timers [][][][]float64
}

func newTables(cats []*catalog, groups int, withState bool) *tables {
	n := len(cats)
	t := &tables{
		cats:    cats,
		reached: make([][]bool, n),
		cost:    make([][][]float64, n),
		prev:    make([][]int, n),
		timers:  make([][][][]float64, groups),
	}

	if withState {
		t.state = make([][][]float64, n)
	}

	for k := range t.timers {
		t.timers[k] = make([][][]float64, n)
	}

	for i, c := range cats {
		size := c.size()
		t.reached[i] = make([]bool, size)
		t.cost[i] = make([][]float64, size)
		t.prev[i] = make([]int, size)
		for id := range t.prev[i] {
			t.prev[i][id] = -1
		}
		if withState {
			t.state[i] = make([][]float64, size)
		}
		for k := range t.timers {
			t.timers[k][i] = make([][]float64, size)
		}
	}

	return t
}

// lookup returns the id of mode v at node i if the vertex has been reached.
func (t *tables) lookup(v []float64, i int) (int, bool) {
	if i < 0 || i >= len(t.cats) {
		return 0, false
	}
	id, ok := t.cats[i].id(v)
	if !ok || !t.reached[i][id] {
		return 0, false
	}
	return id, true
}

// Cost returns a copy of the best known cost of mode v at node i.
func (t *tables) Cost(v []float64, i int) ([]float64, bool) {
	id, ok := t.lookup(v, i)
	if !ok {
		return nil, false
	}
	return vec.Clone(t.cost[i][id]), true
}

// Prev returns a copy of the best predecessor of mode v at node i.
// Vertices of the first node have no predecessor.
func (t *tables) Prev(v []float64, i int) ([]float64, bool) {
	id, ok := t.lookup(v, i)
	if !ok || i == 0 {
		return nil, false
	}
	return vec.Clone(t.cats[i-1].modes[t.prev[i][id]]), true
}
