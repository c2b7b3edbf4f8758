package trajectory

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/harmonia/internal/modules/hamiltonian"
	"github.com/aristath/harmonia/internal/modules/register"
	"github.com/aristath/harmonia/internal/modules/strategies"
	"github.com/aristath/harmonia/internal/utils"
)

// ProgressReporter receives a notification for every recorded sample.
// Samples may be reported out of theta order when the sweep runs on
// multiple workers; the index identifies the sample's position.
type ProgressReporter interface {
	SampleRecorded(index, total int, sample Sample)
}

// Config holds runner configuration.
type Config struct {
	// Workers is the number of concurrent samples. Zero means one worker
	// per CPU. Each worker owns a private register, so no locking is needed
	// around the state itself.
	Workers int

	// EntangleCouplings applies a directed entangling operation along every
	// coupling edge after the strategy's rotations, for scenarios whose
	// couplings must be reflected structurally before measurement.
	EntangleCouplings bool
}

// Runner executes intensity sweeps. The Hamiltonian and strategy are
// read-only throughout a sweep.
type Runner struct {
	workers  int
	entangle bool
	log      zerolog.Logger
}

// NewRunner creates a sweep runner.
func NewRunner(cfg Config, log zerolog.Logger) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		workers:  workers,
		entangle: cfg.EntangleCouplings,
		log:      log.With().Str("service", "trajectory").Logger(),
	}
}

// Run sweeps the strategy over the theta grid and returns the ordered
// trajectory.
//
// Validation errors (invalid unit references, empty grids) are fatal and
// abort before or during dispatch without returning a partial trajectory.
// A recoverable failure in a single sample marks that sample skipped and
// the sweep continues. Results are ordered by theta index regardless of
// worker completion order.
func (r *Runner) Run(
	ctx context.Context,
	h *hamiltonian.Hamiltonian,
	strategy strategies.Strategy,
	thetas []float64,
	reporter ProgressReporter,
) (Trajectory, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hamiltonian: %w", err)
	}
	if strategy == nil {
		return nil, errors.New("strategy is required")
	}
	if len(thetas) == 0 {
		return nil, errors.New("theta grid is empty")
	}

	defer utils.OperationTimer("sweep:"+strategy.Name(), r.log)()

	samples := make([]Sample, len(thetas))

	workers := r.workers
	if workers > len(thetas) {
		workers = len(thetas)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indices := make(chan int)
	var wg sync.WaitGroup
	var fatalOnce sync.Once
	var fatalErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				samples[i] = r.runSample(ctx, h, strategy, thetas[i])

				if samples[i].Skipped && samples[i].fatal != nil {
					fatalOnce.Do(func() {
						fatalErr = samples[i].fatal
						cancel()
					})
					continue
				}
				if reporter != nil {
					reporter.SampleRecorded(i, len(thetas), samples[i])
				}
			}
		}()
	}

	for i := range thetas {
		indices <- i
	}
	close(indices)
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}

	traj := Trajectory(samples)
	if skipped := traj.SkippedCount(); skipped > 0 {
		r.log.Warn().
			Int("skipped", skipped).
			Int("total", len(thetas)).
			Str("strategy", strategy.Name()).
			Msg("Sweep completed with missing samples")
	} else {
		r.log.Debug().
			Int("samples", len(thetas)).
			Str("strategy", strategy.Name()).
			Msg("Sweep completed")
	}

	return traj, nil
}

// runSample evaluates one theta on a freshly prepared register.
func (r *Runner) runSample(
	ctx context.Context,
	h *hamiltonian.Hamiltonian,
	strategy strategies.Strategy,
	theta float64,
) Sample {
	if err := ctx.Err(); err != nil {
		return Sample{Theta: theta, Skipped: true, Reason: "cancelled"}
	}

	reg, err := register.New(h.Units)
	if err != nil {
		return fatalSample(theta, err)
	}

	for _, op := range strategy.Operations(theta, h.Units) {
		if err := reg.ApplyRotation(op.Unit, op.Axis, op.Angle); err != nil {
			return failedSample(theta, err)
		}
	}

	if r.entangle {
		for _, c := range h.Couplings {
			if err := reg.ApplyEntangle(c.I, c.J); err != nil {
				return failedSample(theta, err)
			}
		}
	}

	energy, err := h.Energy(reg)
	if err != nil {
		return failedSample(theta, err)
	}

	return Sample{Theta: theta, Energy: energy}
}

// failedSample classifies an evaluation error: numerical instability is
// recoverable and only skips the sample, an invalid unit reference poisons
// the whole configuration and aborts the sweep.
func failedSample(theta float64, err error) Sample {
	if errors.Is(err, register.ErrNumericalInstability) {
		return Sample{Theta: theta, Skipped: true, Reason: err.Error()}
	}
	return fatalSample(theta, err)
}

func fatalSample(theta float64, err error) Sample {
	return Sample{Theta: theta, Skipped: true, Reason: err.Error(), fatal: err}
}
