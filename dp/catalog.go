package dp

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/milosgajdos/go-approx/vec"
)

// catalog is an ordered set of admissible modes of a single node.
// Modes are identified by their position in the catalog.
type catalog struct {
	modes [][]float64
	index map[string]int
}

func newCatalog(modes [][]float64, dim int) (*catalog, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}

	c := &catalog{
		modes: make([][]float64, len(modes)),
		index: make(map[string]int, len(modes)),
	}

	for id, v := range modes {
		if len(v) != dim {
			return nil, fmt.Errorf("mode %v has dimension %d, expected %d", v, len(v), dim)
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("mode %v is not finite", v)
			}
		}
		k := key(v)
		if _, ok := c.index[k]; ok {
			return nil, fmt.Errorf("duplicate mode %v", v)
		}
		c.index[k] = id
		c.modes[id] = vec.Clone(v)
	}

	return c, nil
}

// id returns the position of mode v in the catalog.
func (c *catalog) id(v []float64) (int, bool) {
	if len(v) != len(c.modes[0]) {
		return 0, false
	}
	id, ok := c.index[key(v)]
	return id, ok
}

func (c *catalog) size() int {
	return len(c.modes)
}

// key encodes the exact bit pattern of v. Negative zero maps to zero.
func key(v []float64) string {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		if x == 0 {
			x = 0
		}
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return string(b)
}
