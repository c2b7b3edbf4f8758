package scenario

import (
	"context"
	"database/sql"
	"math"
	"testing"

	"github.com/aristath/harmonia/internal/events"
	"github.com/aristath/harmonia/internal/modules/classifier"
	"github.com/aristath/harmonia/internal/modules/hamiltonian"
	"github.com/aristath/harmonia/internal/modules/register"
	"github.com/aristath/harmonia/internal/modules/strategies"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupService(t *testing.T) (*Service, *RunRepository, *events.Bus) {
	t.Helper()
	db := setupTestDB(t)
	log := zerolog.Nop()

	scenarios := NewRepository(db, log)
	require.NoError(t, scenarios.EnsureSchema())
	runs := NewRunRepository(db, log)
	require.NoError(t, runs.EnsureSchema())

	bus := events.NewBus()
	svc := NewService(scenarios, runs, bus, ServiceConfig{Workers: 4}, log)
	return svc, runs, bus
}

func chainScenario(name, strategy string, weight float64) *Scenario {
	return &Scenario{
		Name:       name,
		Units:      6,
		Couplings:  keChainCouplings(weight),
		Strategy:   strategy,
		ThetaStart: 0,
		ThetaEnd:   math.Pi,
		Steps:      21,
	}
}

func TestRunTargetedChainConverges(t *testing.T) {
	svc, _, _ := setupService(t)

	sc := chainScenario("targeted-chain", strategies.NameTargeted, -1)
	require.NoError(t, svc.Create(sc))

	run, err := svc.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, classifier.Converging, run.Label)
	assert.Equal(t, 0, run.Skipped)
	assert.Len(t, run.Trajectory, 21)
	assert.InDelta(t, 0.0, run.Result.FinalEnergy, 1e-9)
	assert.Nil(t, run.GroundEnergy)
}

func TestRunUniformChainDeadlocks(t *testing.T) {
	svc, _, _ := setupService(t)

	sc := chainScenario("uniform-chain", strategies.NameUniform, -1)
	require.NoError(t, svc.Create(sc))

	run, err := svc.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, classifier.Deadlocked, run.Label)
	// The sweep dips to the fully aligned energy and rebounds.
	assert.InDelta(t, -5.0, run.Result.MinEnergy, 1e-9)
	assert.InDelta(t, 0.0, run.Result.InitialEnergy, 1e-9)
	assert.InDelta(t, 0.0, run.Result.FinalEnergy, 1e-9)
}

func TestRunWithAnalyticGround(t *testing.T) {
	svc, _, _ := setupService(t)

	sc := &Scenario{
		Name:              "controlling-chain",
		Units:             6,
		Couplings:         keChainCouplings(1),
		Strategy:          strategies.NameTargeted,
		ThetaStart:        0,
		ThetaEnd:          math.Pi / 2,
		Steps:             11,
		UseAnalyticGround: true,
	}
	require.NoError(t, svc.Create(sc))

	run, err := svc.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, classifier.Converging, run.Label)
	require.NotNil(t, run.GroundEnergy)
	assert.InDelta(t, -5.0, *run.GroundEnergy, 1e-9)
	assert.InDelta(t, -5.0, run.Result.FinalEnergy, 1e-9)
	require.NotNil(t, run.GroundBasis)
}

func TestRunRejectsOutOfRangeCouplingBeforeSampling(t *testing.T) {
	svc, runs, bus := setupService(t)

	eventCh, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	sc := &Scenario{
		ID:    "bad-coupling",
		Name:  "bad-coupling",
		Units: 6,
		Couplings: []hamiltonian.Coupling{
			{I: 6, J: 0, Weight: 1.0},
		},
		Strategy:   strategies.NameTargeted,
		ThetaStart: 0,
		ThetaEnd:   math.Pi,
		Steps:      21,
	}

	run, err := svc.Run(context.Background(), sc)
	require.ErrorIs(t, err, register.ErrInvalidUnitIndex)
	assert.Nil(t, run)

	// No partial run reaches the store and no sample is ever computed.
	stored, err := runs.GetByScenario("bad-coupling")
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, eventCh)
}

func TestRunRejectsUnknownStrategy(t *testing.T) {
	svc, _, _ := setupService(t)

	sc := chainScenario("bad-strategy", "mediated", -1)
	run, err := svc.Run(context.Background(), sc)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Nil(t, run)
}

func TestRunPersistsAndReloads(t *testing.T) {
	svc, runs, _ := setupService(t)

	sc := chainScenario("persisted-chain", strategies.NameUniform, -1)
	require.NoError(t, svc.Create(sc))

	run, err := svc.Run(context.Background(), sc)
	require.NoError(t, err)

	loaded, err := runs.GetByID(run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.Label, loaded.Label)
	assert.Equal(t, sc.ID, loaded.ScenarioID)
	require.Len(t, loaded.Trajectory, len(run.Trajectory))
	for i, sample := range run.Trajectory {
		assert.InDelta(t, sample.Theta, loaded.Trajectory[i].Theta, 1e-12)
		assert.InDelta(t, sample.Energy, loaded.Trajectory[i].Energy, 1e-12)
	}
	assert.InDelta(t, run.Result.MinEnergy, loaded.Result.MinEnergy, 1e-12)

	latest, err := runs.Latest(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
}

func TestRunPublishesLifecycleEvents(t *testing.T) {
	svc, _, bus := setupService(t)

	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	sc := chainScenario("event-chain", strategies.NameUniform, -1)
	require.NoError(t, svc.Create(sc))

	run, err := svc.Run(context.Background(), sc)
	require.NoError(t, err)

	var started, samples, completed int
	for len(ch) > 0 {
		e := <-ch
		assert.Equal(t, run.ID, e.RunID)
		switch e.Type {
		case events.SweepStarted:
			started++
		case events.SampleRecorded:
			samples++
			require.NotNil(t, e.Sample)
		case events.SweepCompleted:
			completed++
			assert.Equal(t, string(classifier.Deadlocked), e.Label)
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, 21, samples)
	assert.Equal(t, 1, completed)
}

func TestSeedReferenceScenarios(t *testing.T) {
	svc, _, _ := setupService(t)

	require.NoError(t, svc.SeedReferenceScenarios())
	all, err := svc.List()
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Seeding again leaves existing rows alone.
	require.NoError(t, svc.SeedReferenceScenarios())
	again, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, again, 3)

	// Every seeded scenario classifies the way its description promises,
	// on its documented 11-point grid.
	expected := map[string]classifier.Label{
		"golden-water": classifier.Converging,
		"fire-clash":   classifier.Deadlocked,
		"ke-cycle":     classifier.Converging,
	}
	for name, label := range expected {
		sc, err := svc.GetByName(name)
		require.NoError(t, err)
		assert.Equal(t, 11, sc.Steps, name)
		run, err := svc.Run(context.Background(), sc)
		require.NoError(t, err, name)
		assert.Equal(t, label, run.Label, name)
		assert.Len(t, run.Trajectory, 11, name)
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr error
	}{
		{
			name:    "empty name",
			mutate:  func(s *Scenario) { s.Name = "" },
			wantErr: ErrConfiguration,
		},
		{
			name:    "zero units",
			mutate:  func(s *Scenario) { s.Units = 0 },
			wantErr: ErrConfiguration,
		},
		{
			name:    "too many units",
			mutate:  func(s *Scenario) { s.Units = register.MaxUnits + 1 },
			wantErr: ErrConfiguration,
		},
		{
			name:    "zero steps",
			mutate:  func(s *Scenario) { s.Steps = 0 },
			wantErr: ErrConfiguration,
		},
		{
			name:    "nan theta",
			mutate:  func(s *Scenario) { s.ThetaEnd = math.NaN() },
			wantErr: ErrConfiguration,
		},
		{
			name:    "negative tolerance",
			mutate:  func(s *Scenario) { s.Tolerance = -0.1 },
			wantErr: ErrConfiguration,
		},
		{
			name:    "unknown strategy",
			mutate:  func(s *Scenario) { s.Strategy = "osmotic" },
			wantErr: ErrConfiguration,
		},
		{
			name: "coupling unit out of range",
			mutate: func(s *Scenario) {
				s.Couplings = append(s.Couplings, hamiltonian.Coupling{I: 0, J: 6, Weight: 1})
			},
			wantErr: register.ErrInvalidUnitIndex,
		},
		{
			name: "self coupling",
			mutate: func(s *Scenario) {
				s.Couplings = append(s.Couplings, hamiltonian.Coupling{I: 2, J: 2, Weight: 1})
			},
			wantErr: register.ErrInvalidUnitIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := chainScenario("validate-case", strategies.NameTargeted, -1)
			tt.mutate(sc)
			err := sc.Validate()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	valid := chainScenario("validate-ok", strategies.NameUniform, -1)
	require.NoError(t, valid.Validate())
}

func TestRepositoryRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.EnsureSchema())

	sc := chainScenario("roundtrip", strategies.NameTargeted, -1)
	sc.ID = "roundtrip-id"
	sc.Tolerance = 0.1
	sc.EntangleCouplings = true
	sc.Biases = []hamiltonian.Bias{{Unit: 0, Weight: 0.5}}
	require.NoError(t, repo.Save(sc))

	loaded, err := repo.GetByID("roundtrip-id")
	require.NoError(t, err)
	assert.Equal(t, sc.Name, loaded.Name)
	assert.Equal(t, sc.Couplings, loaded.Couplings)
	assert.Equal(t, sc.Biases, loaded.Biases)
	assert.Equal(t, 0.1, loaded.Tolerance)
	assert.True(t, loaded.EntangleCouplings)
	assert.False(t, loaded.UseAnalyticGround)

	byName, err := repo.GetByName("roundtrip")
	require.NoError(t, err)
	assert.Equal(t, loaded.ID, byName.ID)

	_, err = repo.GetByID("missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete("roundtrip-id"))
	require.ErrorIs(t, repo.Delete("roundtrip-id"), ErrNotFound)
}
