package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var palette = []color.RGBA{
	{R: 255, B: 128, A: 255},
	{G: 128, B: 255, A: 255},
	{R: 169, G: 169, B: 169, A: 255},
	{R: 255, G: 128, A: 255},
}

// NewPathPlot creates new plot of the relaxed reference ref against the
// rounded path. ref stores one channel per row and one node per column;
// path stores one mode vector per node. Nodes are spaced dt apart.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * ref is nil or path is empty
// * the number of nodes or channels of ref and path differ
// * gonum plot fails to be created
func NewPathPlot(ref *mat.Dense, path [][]float64, dt float64) (*plot.Plot, error) {
	if ref == nil || len(path) == 0 {
		return nil, fmt.Errorf("invalid data supplied")
	}

	rows, cols := ref.Dims()
	if cols != len(path) {
		return nil, fmt.Errorf("invalid data dimensions: %d nodes, %d path modes", cols, len(path))
	}

	if dt <= 0 {
		dt = 1
	}

	p := plot.New()

	p.Title.Text = "Rounding"
	p.X.Label.Text = "t"
	p.Y.Label.Text = "u"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	for k := 0; k < rows; k++ {
		c := palette[k%len(palette)]

		refLine, err := plotter.NewLine(refPoints(ref, k, dt))
		if err != nil {
			return nil, err
		}
		refLine.Color = c
		refLine.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

		pts, err := pathPoints(path, k, dt)
		if err != nil {
			return nil, err
		}
		pathScatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create scatter: %v", err)
		}
		pathScatter.GlyphStyle.Color = c
		pathScatter.Shape = draw.CrossGlyph{}
		pathScatter.GlyphStyle.Radius = vg.Points(2)

		p.Add(refLine, pathScatter)
		p.Legend.Add(fmt.Sprintf("relaxed %d", k), refLine)
		p.Legend.Add(fmt.Sprintf("rounded %d", k), pathScatter)
	}

	return p, nil
}

func refPoints(m *mat.Dense, k int, dt float64) plotter.XYs {
	_, c := m.Dims()
	pts := make(plotter.XYs, c)
	for i := 0; i < c; i++ {
		pts[i].X = float64(i) * dt
		pts[i].Y = m.At(k, i)
	}

	return pts
}

func pathPoints(path [][]float64, k int, dt float64) (plotter.XYs, error) {
	pts := make(plotter.XYs, len(path))
	for i, v := range path {
		if k >= len(v) {
			return nil, fmt.Errorf("invalid mode length at node %d: %d", i, len(v))
		}
		pts[i].X = float64(i) * dt
		pts[i].Y = v[k]
	}

	return pts, nil
}
