package work

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/harmonia/internal/modules/scenario"
	"github.com/rs/zerolog"
)

// Reverification work type IDs.
const (
	TypeScenarioSweep = "scenario:sweep"
	TypeRunPrune      = "runs:prune"
)

// runRetention is how long recorded runs are kept before pruning.
const runRetention = 30 * 24 * time.Hour

// sweepInterval is the minimum gap between automatic re-sweeps of a scenario.
const sweepInterval = 24 * time.Hour

// RegisterSweepWork wires the scenario service into the processor: every
// stored scenario is re-swept on a daily cadence and old runs are pruned.
func RegisterSweepWork(registry *Registry, svc *scenario.Service, runs *scenario.RunRepository, log zerolog.Logger) {
	workLog := log.With().Str("service", "work").Logger()

	registry.Register(&WorkType{
		ID:       TypeScenarioSweep,
		Interval: sweepInterval,
		Priority: PriorityMedium,
		FindSubjects: func() []string {
			scenarios, err := svc.List()
			if err != nil {
				workLog.Error().Err(err).Msg("Failed to list scenarios for sweep work")
				return nil
			}
			ids := make([]string, 0, len(scenarios))
			for _, sc := range scenarios {
				ids = append(ids, sc.ID)
			}
			return ids
		},
		Execute: func(ctx context.Context, subject string) error {
			run, err := svc.RunByID(ctx, subject)
			if err != nil {
				return fmt.Errorf("sweep of %s: %w", subject, err)
			}
			workLog.Info().
				Str("scenario", subject).
				Str("label", string(run.Label)).
				Msg("Scheduled sweep completed")
			return nil
		},
	})

	registry.Register(&WorkType{
		ID:        TypeRunPrune,
		DependsOn: nil,
		Interval:  24 * time.Hour,
		Priority:  PriorityLow,
		FindSubjects: func() []string {
			return []string{""}
		},
		Execute: func(ctx context.Context, _ string) error {
			cutoff := time.Now().Add(-runRetention).Unix()
			pruned, err := runs.PruneOlderThan(cutoff)
			if err != nil {
				return err
			}
			if pruned > 0 {
				workLog.Info().Int64("pruned", pruned).Msg("Pruned old runs")
			}
			return nil
		},
	})
}
