package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/harmonia/internal/modules/classifier"
	"github.com/aristath/harmonia/internal/modules/scenario"
	"github.com/rs/zerolog"
)

// ReverifyJob re-runs the seeded reference scenarios and checks each one
// still classifies as expected. A drifting label means the engine or its
// inputs changed underneath us.
type ReverifyJob struct {
	service  *scenario.Service
	expected map[string]classifier.Label
	log      zerolog.Logger
}

// NewReverifyJob creates the reference reverification job.
func NewReverifyJob(service *scenario.Service, log zerolog.Logger) *ReverifyJob {
	return &ReverifyJob{
		service: service,
		expected: map[string]classifier.Label{
			"golden-water": classifier.Converging,
			"fire-clash":   classifier.Deadlocked,
			"ke-cycle":     classifier.Converging,
		},
		log: log.With().Str("job", "reverify").Logger(),
	}
}

// Name returns the job name
func (j *ReverifyJob) Name() string {
	return "reference_reverification"
}

// Run executes every reference scenario and compares labels.
func (j *ReverifyJob) Run() error {
	var drifted []string

	for name, want := range j.expected {
		sc, err := j.service.GetByName(name)
		if err != nil {
			return fmt.Errorf("load reference %s: %w", name, err)
		}

		run, err := j.service.Run(context.Background(), sc)
		if err != nil {
			return fmt.Errorf("reverify %s: %w", name, err)
		}

		if run.Label != want {
			drifted = append(drifted, fmt.Sprintf("%s: want %s, got %s", name, want, run.Label))
			j.log.Warn().
				Str("scenario", name).
				Str("want", string(want)).
				Str("got", string(run.Label)).
				Msg("Reference scenario drifted")
		}
	}

	if len(drifted) > 0 {
		return fmt.Errorf("reference drift: %s", strings.Join(drifted, "; "))
	}
	j.log.Info().Int("scenarios", len(j.expected)).Msg("Reference scenarios verified")
	return nil
}
