package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/milosgajdos/go-approx/csvio"
	"github.com/milosgajdos/go-approx/noise"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

type genOptions struct {
	nodes    int
	channels int
	dt       float64
	period   float64
	sigma    float64
	seed     uint64
	out      string
}

var genOpts genOptions

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a synthetic relaxed reference",
	Long: `Writes a relaxed reference built from phase shifted sinusoids in [0, 1],
optionally perturbed by Gaussian noise and clipped back to [0, 1].`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		if genOpts.out == "" {
			return runGen(genOpts, cmd.OutOrStdout(), logger)
		}

		f, err := os.Create(genOpts.out)
		if err != nil {
			return err
		}
		if err := runGen(genOpts, f, logger); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	genCmd.Flags().IntVar(&genOpts.nodes, "nodes", 100, "Number of nodes")
	genCmd.Flags().IntVar(&genOpts.channels, "channels", 1, "Number of control channels")
	genCmd.Flags().Float64Var(&genOpts.dt, "dt", 0.01, "Time step")
	genCmd.Flags().Float64Var(&genOpts.period, "period", 1, "Sinusoid period")
	genCmd.Flags().Float64Var(&genOpts.sigma, "noise", 0, "Standard deviation of the Gaussian noise")
	genCmd.Flags().Uint64Var(&genOpts.seed, "seed", 1, "Noise seed")
	genCmd.Flags().StringVar(&genOpts.out, "out", "", "Output file; stdout when empty")

	rootCmd.AddCommand(genCmd)
}

func runGen(o genOptions, w io.Writer, logger *slog.Logger) error {
	if o.nodes < 1 || o.channels < 1 {
		return fmt.Errorf("invalid reference size: %d channels, %d nodes", o.channels, o.nodes)
	}

	if o.dt <= 0 || o.period <= 0 {
		return fmt.Errorf("invalid time step %v or period %v", o.dt, o.period)
	}

	ref := mat.NewDense(o.channels, o.nodes, nil)
	for k := 0; k < o.channels; k++ {
		phase := 2 * math.Pi * float64(k) / float64(o.channels)
		for i := 0; i < o.nodes; i++ {
			t := float64(i) * o.dt
			ref.Set(k, i, 0.5+0.5*math.Sin(2*math.Pi*t/o.period+phase))
		}
	}

	if o.sigma > 0 {
		g, err := noise.NewIsotropic(o.channels, o.sigma, o.seed)
		if err != nil {
			return err
		}
		logger.Debug("perturbing reference", "noise", g.String(), "seed", o.seed)
		if err := g.Perturb(ref, 0, 1); err != nil {
			return err
		}
	}

	return csvio.WriteReference(w, ref)
}
