// Package charts provides services for turning recorded runs into chart series.
package charts

import (
	"fmt"

	"github.com/aristath/harmonia/internal/modules/scenario"
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

// ChartDataPoint represents a single point on an energy chart
type ChartDataPoint struct {
	Theta  float64 `json:"theta"`
	Energy float64 `json:"energy"`
}

// RunChart is the plottable view of one recorded run
type RunChart struct {
	RunID    string           `json:"run_id"`
	Strategy string           `json:"strategy"`
	Label    string           `json:"label"`
	Energy   []ChartDataPoint `json:"energy"`

	// Smoothed is a moving-average overlay of the energy series. Empty when
	// the run has too few recorded samples to smooth.
	Smoothed []ChartDataPoint `json:"smoothed,omitempty"`

	// Skipped marks the theta values whose samples failed recoverably.
	Skipped []float64 `json:"skipped,omitempty"`
}

// defaultSmoothingWindow is the moving-average window for the overlay.
const defaultSmoothingWindow = 5

// Service provides chart data operations
type Service struct {
	runs *scenario.RunRepository
	log  zerolog.Logger
}

// NewService creates a new charts service
func NewService(runs *scenario.RunRepository, log zerolog.Logger) *Service {
	return &Service{
		runs: runs,
		log:  log.With().Str("service", "charts").Logger(),
	}
}

// RunChart builds the chart view of a stored run.
func (s *Service) RunChart(runID string) (*RunChart, error) {
	run, err := s.runs.GetByID(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return BuildRunChart(run), nil
}

// CompareCharts builds chart views for every run of a scenario, newest first,
// so strategies can be plotted against each other.
func (s *Service) CompareCharts(scenarioID string) ([]*RunChart, error) {
	runs, err := s.runs.GetByScenario(scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	charts := make([]*RunChart, 0, len(runs))
	for _, run := range runs {
		charts = append(charts, BuildRunChart(run))
	}
	return charts, nil
}

// BuildRunChart converts a run into its chart series. Skipped samples are
// excluded from the energy series and listed separately.
func BuildRunChart(run *scenario.Run) *RunChart {
	chart := &RunChart{
		RunID:    run.ID,
		Strategy: run.Strategy,
		Label:    string(run.Label),
	}

	var thetas, energies []float64
	for _, sample := range run.Trajectory {
		if sample.Skipped {
			chart.Skipped = append(chart.Skipped, sample.Theta)
			continue
		}
		thetas = append(thetas, sample.Theta)
		energies = append(energies, sample.Energy)
		chart.Energy = append(chart.Energy, ChartDataPoint{Theta: sample.Theta, Energy: sample.Energy})
	}

	chart.Smoothed = smoothSeries(thetas, energies, defaultSmoothingWindow)
	return chart
}

// smoothSeries overlays a simple moving average. The first window-1 values
// are warm-up and dropped.
func smoothSeries(thetas, energies []float64, window int) []ChartDataPoint {
	if len(energies) <= window {
		return nil
	}

	sma := talib.Sma(energies, window)

	points := make([]ChartDataPoint, 0, len(sma)-window+1)
	for i := window - 1; i < len(sma); i++ {
		points = append(points, ChartDataPoint{Theta: thetas[i], Energy: sma[i]})
	}
	return points
}
