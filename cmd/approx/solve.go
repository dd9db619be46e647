package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/milosgajdos/go-approx/config"
	"github.com/milosgajdos/go-approx/cost"
	"github.com/milosgajdos/go-approx/csvio"
	"github.com/milosgajdos/go-approx/dp"
	"github.com/milosgajdos/go-approx/metrics"
	"github.com/milosgajdos/go-approx/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

type solveOptions struct {
	problem string
	ref     string
	out     string
	traj    string
	plot    string
	metrics string
	workers int
}

var solveOpts solveOptions

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Round a relaxed reference",
	Long: `Reads a problem file and a relaxed reference, finds the optimal mode
sequence and prints it together with the objective value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		return runSolve(cmd.Context(), solveOpts, cmd.OutOrStdout(), logger)
	},
}

func init() {
	solveCmd.Flags().StringVar(&solveOpts.problem, "problem", "", "Problem file (YAML)")
	solveCmd.Flags().StringVar(&solveOpts.ref, "ref", "", "Relaxed reference (CSV, one channel per row)")
	solveCmd.Flags().StringVar(&solveOpts.out, "out", "", "Write the mode sequence to this CSV file")
	solveCmd.Flags().StringVar(&solveOpts.traj, "traj", "", "Write the state trajectory to this CSV file")
	solveCmd.Flags().StringVar(&solveOpts.plot, "plot", "", "Save a plot of the reference and the rounding to this file")
	solveCmd.Flags().StringVar(&solveOpts.metrics, "metrics", "", "Write solver metrics to this file")
	solveCmd.Flags().IntVar(&solveOpts.workers, "workers", 1, "Number of goroutines relaxing a node")
	_ = solveCmd.MarkFlagRequired("problem")
	_ = solveCmd.MarkFlagRequired("ref")

	rootCmd.AddCommand(solveCmd)
}

func runSolve(ctx context.Context, o solveOptions, w io.Writer, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := config.Load(o.problem)
	if err != nil {
		return err
	}

	ref, err := csvio.ReadReferenceFile(o.ref)
	if err != nil {
		return err
	}

	c, err := p.Config(ref)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	s, err := dp.New(ref, c, dp.WithLogger(logger), dp.WithWorkers(o.workers))
	if err != nil {
		return err
	}

	sol, err := s.Run(ctx)
	if err != nil {
		m.RecordError()
		if werr := writeMetrics(o.metrics, reg); werr != nil {
			logger.Error("failed to write metrics", "error", werr)
		}
		return err
	}
	m.Record(sol.Stats(), sol.Success())

	path := sol.Path()
	fmt.Fprintf(w, "Optimal path: %v\n", path)
	// modes need not live in the reference space
	if rows, _ := ref.Dims(); len(path) > 0 && rows == len(path[0]) {
		dev, err := cost.IntegralDeviation(ref, path, c.Dt)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Integral deviation: %v\n", dev)
	} else {
		logger.Debug("integral deviation skipped", "channels", rows, "nodes", len(path))
	}
	fmt.Fprintf(w, "Final cost: %v\n", sol.Objective())
	fmt.Fprintf(w, "Success: %v\n", sol.Success())
	fmt.Fprintf(w, "Elapsed time: %v\n", sol.Stats().Duration)

	if o.out != "" {
		if err := csvio.WriteFile(o.out, sol.Path()); err != nil {
			return err
		}
		logger.Info("path written", "file", o.out)
	}

	if o.traj != "" {
		if !c.IncludeState {
			return fmt.Errorf("problem has no state model: no trajectory to write")
		}
		if err := csvio.WriteFile(o.traj, sol.Trajectory()); err != nil {
			return err
		}
		logger.Info("trajectory written", "file", o.traj)
	}

	if o.plot != "" {
		plt, err := sim.NewPathPlot(ref, sol.Path(), c.Dt)
		if err != nil {
			return err
		}
		if err := plt.Save(8*vg.Inch, 4*vg.Inch, o.plot); err != nil {
			return err
		}
		logger.Info("plot saved", "file", o.plot)
	}

	return writeMetrics(o.metrics, reg)
}

func writeMetrics(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	return metrics.WriteFile(path, g)
}
