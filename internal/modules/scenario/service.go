package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/harmonia/internal/events"
	"github.com/aristath/harmonia/internal/modules/classifier"
	"github.com/aristath/harmonia/internal/modules/strategies"
	"github.com/aristath/harmonia/internal/modules/trajectory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service orchestrates scenario sweeps: it validates the configuration,
// runs the trajectory, classifies the result, persists the run, and
// publishes lifecycle events.
type Service struct {
	scenarios *Repository
	runs      *RunRepository
	bus       *events.Bus

	workers          int
	defaultTolerance float64
	log              zerolog.Logger
}

// ServiceConfig holds service construction parameters.
type ServiceConfig struct {
	// Workers bounds sweep concurrency. Zero means one worker per CPU.
	Workers int

	// DefaultTolerance is the classifier tolerance fraction used when a
	// scenario does not carry its own.
	DefaultTolerance float64
}

// NewService creates a scenario service.
func NewService(scenarios *Repository, runs *RunRepository, bus *events.Bus, cfg ServiceConfig, log zerolog.Logger) *Service {
	tolerance := cfg.DefaultTolerance
	if tolerance <= 0 {
		tolerance = classifier.DefaultToleranceFraction
	}
	return &Service{
		scenarios:        scenarios,
		runs:             runs,
		bus:              bus,
		workers:          cfg.Workers,
		defaultTolerance: tolerance,
		log:              log.With().Str("service", "scenario").Logger(),
	}
}

// Create validates and persists a new scenario, assigning its id.
func (s *Service) Create(sc *Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if err := s.scenarios.Save(sc); err != nil {
		return err
	}
	s.log.Info().Str("scenario", sc.Name).Int("units", sc.Units).Msg("Scenario created")
	return nil
}

// Get returns a stored scenario by id.
func (s *Service) Get(id string) (*Scenario, error) {
	return s.scenarios.GetByID(id)
}

// GetByName returns a stored scenario by name.
func (s *Service) GetByName(name string) (*Scenario, error) {
	return s.scenarios.GetByName(name)
}

// List returns all stored scenarios.
func (s *Service) List() ([]*Scenario, error) {
	return s.scenarios.GetAll()
}

// Delete removes a scenario.
func (s *Service) Delete(id string) error {
	return s.scenarios.Delete(id)
}

// Runs returns the recorded runs of a scenario, newest first.
func (s *Service) Runs(scenarioID string) ([]*Run, error) {
	return s.runs.GetByScenario(scenarioID)
}

// GetRun returns one recorded run.
func (s *Service) GetRun(id string) (*Run, error) {
	return s.runs.GetByID(id)
}

// RunByID loads a scenario and executes it.
func (s *Service) RunByID(ctx context.Context, scenarioID string) (*Run, error) {
	sc, err := s.scenarios.GetByID(scenarioID)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, sc)
}

// Run executes one full sweep of the scenario. All configuration problems
// surface before the first sample; a failed sweep is never persisted.
func (s *Service) Run(ctx context.Context, sc *Scenario) (*Run, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()

	h, err := sc.Hamiltonian()
	if err != nil {
		return nil, err
	}
	strategy, err := strategies.ForName(sc.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	thetas, err := sc.Thetas()
	if err != nil {
		return nil, err
	}

	s.publish(events.Event{
		Type:        events.SweepStarted,
		RunID:       runID,
		SampleTotal: len(thetas),
	})

	runner := trajectory.NewRunner(trajectory.Config{
		Workers:           s.workers,
		EntangleCouplings: sc.EntangleCouplings,
	}, s.log)

	traj, err := runner.Run(ctx, h, strategy, thetas, s.reporter(runID, len(thetas)))
	if err != nil {
		s.publish(events.Event{
			Type:  events.SweepFailed,
			RunID: runID,
			Error: err.Error(),
		})
		s.log.Error().Err(err).Str("scenario", sc.Name).Msg("Sweep aborted")
		return nil, err
	}

	var groundEnergy *float64
	var groundBasis *uint64
	if sc.UseAnalyticGround {
		basis, energy, gerr := h.GroundState()
		if gerr != nil {
			return nil, fmt.Errorf("ground state search: %w", gerr)
		}
		groundEnergy = &energy
		groundBasis = &basis
	}

	tolerance := sc.Tolerance
	if tolerance <= 0 {
		tolerance = s.defaultTolerance
	}
	cls := classifier.New(classifier.Config{ToleranceFraction: tolerance}, s.log)
	result := cls.Classify(traj, h.Bound(), groundEnergy)

	run := &Run{
		ID:           runID,
		ScenarioID:   sc.ID,
		Strategy:     sc.Strategy,
		Label:        result.Label,
		Result:       result,
		Trajectory:   traj,
		GroundEnergy: groundEnergy,
		GroundBasis:  groundBasis,
		Skipped:      result.SkippedSamples,
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
	}

	if s.runs != nil && sc.ID != "" {
		if err := s.runs.Save(run); err != nil {
			return nil, err
		}
	}

	s.publish(events.Event{
		Type:    events.SweepCompleted,
		RunID:   runID,
		Label:   string(result.Label),
		Skipped: result.SkippedSamples,
	})
	s.log.Info().
		Str("scenario", sc.Name).
		Str("strategy", sc.Strategy).
		Str("label", string(result.Label)).
		Float64("final_energy", result.FinalEnergy).
		Int("skipped", result.SkippedSamples).
		Msg("Sweep completed")

	return run, nil
}

func (s *Service) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	e.Timestamp = time.Now().UTC()
	s.bus.Publish(e)
}

// reporter bridges runner progress into the event bus.
func (s *Service) reporter(runID string, total int) trajectory.ProgressReporter {
	if s.bus == nil {
		return nil
	}
	return &busReporter{service: s, runID: runID, total: total}
}

type busReporter struct {
	service *Service
	runID   string
	total   int
}

func (r *busReporter) SampleRecorded(index, total int, sample trajectory.Sample) {
	r.service.publish(events.Event{
		Type:        events.SampleRecorded,
		RunID:       r.runID,
		SampleIndex: index,
		SampleTotal: r.total,
		Sample:      &sample,
	})
}
