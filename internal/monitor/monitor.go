// Package monitor owns the mutable operating state of a monitored line span
// and keeps its derived thermal values current. The ieee738 engine stays
// pure; every solve here is a fresh computation from the snapshot.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gridsense-io/ampacity/internal/atmosphere"
	"github.com/gridsense-io/ampacity/internal/ieee738"
)

// Snapshot is the full observable state of a monitored span.
type Snapshot struct {
	Enabled   bool
	Conductor ieee738.ConductorProperties
	Weather   atmosphere.Weather
	Current   float64 // present load [A]
	MaxTemp   float64 // rating limit [°C]

	// Derived on Refresh.
	ConductorTemperature float64 // steady-state temperature at Current [°C]
	Rating               float64 // ampacity at MaxTemp [A]
	LastRefresh          time.Time
}

type Monitor struct {
	mu     sync.RWMutex
	site   atmosphere.Site
	solver ieee738.SolverConfig
	s      Snapshot

	now func() time.Time
}

func New(site atmosphere.Site, initial Snapshot, solver ieee738.SolverConfig) (*Monitor, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	if err := initial.Conductor.Validate(); err != nil {
		return nil, err
	}
	if err := solver.Validate(); err != nil {
		return nil, err
	}
	if err := validateSnapshot(initial); err != nil {
		return nil, err
	}
	return &Monitor{site: site, solver: solver, s: initial, now: time.Now}, nil
}

func validateSnapshot(s Snapshot) error {
	if s.Current < 0 {
		return ErrNegativeCurrent
	}
	if s.Weather.WindSpeed < 0 {
		return ErrNegativeWindSpeed
	}
	if s.MaxTemp <= s.Weather.AmbientTemperature {
		return ErrMaxTemperatureBelowAmbient
	}
	return nil
}

func (m *Monitor) Get() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s
}

func (m *Monitor) SetEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.Enabled = on
}

func (m *Monitor) SetAmbientTemperature(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.MaxTemp <= t {
		return ErrMaxTemperatureBelowAmbient
	}
	m.s.Weather.AmbientTemperature = t
	return nil
}

func (m *Monitor) SetWindSpeed(v float64) error {
	if v < 0 {
		return ErrNegativeWindSpeed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.Weather.WindSpeed = v
	return nil
}

func (m *Monitor) SetWindAngle(deg float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.Weather.WindAngle = deg
	return nil
}

func (m *Monitor) SetCurrent(amps float64) error {
	if amps < 0 {
		return ErrNegativeCurrent
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.Current = amps
	return nil
}

func (m *Monitor) SetMaxTemperature(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t <= m.s.Weather.AmbientTemperature {
		return ErrMaxTemperatureBelowAmbient
	}
	m.s.MaxTemp = t
	return nil
}

// Refresh recomputes the ampacity rating at MaxTemp and the steady-state
// conductor temperature at the present current. A disabled monitor keeps its
// last derived values.
func (m *Monitor) Refresh(at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.s.Enabled {
		return nil
	}

	ratingCond := m.site.Resolve(m.s.Weather, m.s.Conductor, at, m.s.MaxTemp)
	rating, err := ieee738.CurrentForTemperature(m.s.Conductor, ratingCond, m.s.MaxTemp)
	if err != nil {
		return fmt.Errorf("rating at %.1f°C: %w", m.s.MaxTemp, err)
	}

	// Film temperature for the temperature solve uses the previous estimate;
	// before the first refresh the rating limit is the best guess.
	guess := m.s.ConductorTemperature
	if guess <= m.s.Weather.AmbientTemperature {
		guess = m.s.MaxTemp
	}
	tempCond := m.site.Resolve(m.s.Weather, m.s.Conductor, at, guess)
	temp, err := ieee738.TemperatureForCurrent(m.s.Conductor, tempCond, m.s.Current, m.solver)
	if err != nil {
		return fmt.Errorf("conductor temperature at %.0f A: %w", m.s.Current, err)
	}

	m.s.Rating = rating
	m.s.ConductorTemperature = temp
	m.s.LastRefresh = at
	return nil
}

// Run refreshes on the given interval until the context is cancelled.
// Solve failures are logged and the loop keeps going; weather setters may
// fix the inputs before the next tick.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Refresh(m.now()); err != nil {
				log.WithError(err).Warn("line refresh failed")
			}
		}
	}
}

// Transient integrates the conductor temperature after a step change to
// finalCurrent, starting from the steady state at the present current.
// Returns steps+1 samples.
func (m *Monitor) Transient(finalCurrent float64, dt time.Duration, steps int) ([]ieee738.ThermalState, error) {
	cond, start, err := m.transientStart()
	if err != nil {
		return nil, err
	}
	s := m.Get()
	return ieee738.Integrate(s.Conductor, cond, finalCurrent, start, dt, steps)
}

// SettlingTime is the elapsed time for the conductor to cross target after a
// step change to finalCurrent, from the steady state at the present current.
func (m *Monitor) SettlingTime(finalCurrent, target float64, dt time.Duration, maxSteps int) (time.Duration, error) {
	cond, start, err := m.transientStart()
	if err != nil {
		return 0, err
	}
	s := m.Get()
	return ieee738.SettlingTime(s.Conductor, cond, finalCurrent, start, target, dt, maxSteps)
}

func (m *Monitor) transientStart() (ieee738.EnvironmentalConditions, float64, error) {
	m.mu.RLock()
	s := m.s
	site := m.site
	solver := m.solver
	at := m.now()
	m.mu.RUnlock()

	guess := s.ConductorTemperature
	if guess <= s.Weather.AmbientTemperature {
		guess = s.MaxTemp
	}
	cond := site.Resolve(s.Weather, s.Conductor, at, guess)
	start, err := ieee738.TemperatureForCurrent(s.Conductor, cond, s.Current, solver)
	if err != nil {
		return ieee738.EnvironmentalConditions{}, 0, fmt.Errorf("steady state before step: %w", err)
	}
	return cond, start, nil
}
