package testutil

import (
	"time"

	"github.com/gridsense-io/ampacity/internal/atmosphere"
	"github.com/gridsense-io/ampacity/internal/ieee738"
	"github.com/gridsense-io/ampacity/internal/monitor"
)

// FakeMonitorService is a reusable fake implementing ports.MonitorService.
// Put ONLY what multiple test packages need here.
type FakeMonitorService struct {
	S monitor.Snapshot

	SetEnabledCalled bool
	SetEnabledArg    bool

	SetAmbientCalled bool
	SetAmbientArg    float64
	SetAmbientErr    error

	SetWindSpeedCalled bool
	SetWindSpeedArg    float64
	SetWindSpeedErr    error

	SetWindAngleCalled bool
	SetWindAngleArg    float64
	SetWindAngleErr    error

	SetCurrentCalled bool
	SetCurrentArg    float64
	SetCurrentErr    error

	SetMaxTempCalled bool
	SetMaxTempArg    float64
	SetMaxTempErr    error

	TransientCalled  bool
	TransientCurrent float64
	TransientDt      time.Duration
	TransientSteps   int
	TransientErr     error

	SettlingCalled bool
	SettlingErr    error
	SettlingResult time.Duration
}

func NewFakeMonitorService() *FakeMonitorService {
	return &FakeMonitorService{
		S: monitor.Snapshot{
			Enabled: true,
			Conductor: ieee738.ConductorProperties{
				Diameter:     0.0281,
				Mass:         1.628,
				SpecificHeat: 897,
				Absorptivity: 0.8,
				Emissivity:   0.8,
				TLow:         25,
				THigh:        75,
				RLow:         7.283e-5,
				RHigh:        8.688e-5,
			},
			Weather: atmosphere.Weather{
				AmbientTemperature: 40,
				WindSpeed:          0.61,
				WindAngle:          90,
			},
			Current:              1000,
			MaxTemp:              100,
			ConductorTemperature: 85.5,
			Rating:               1150,
		},
	}
}

func (f *FakeMonitorService) Get() monitor.Snapshot { return f.S }

func (f *FakeMonitorService) SetEnabled(on bool) {
	f.SetEnabledCalled = true
	f.SetEnabledArg = on
	f.S.Enabled = on
}

func (f *FakeMonitorService) SetAmbientTemperature(t float64) error {
	f.SetAmbientCalled = true
	f.SetAmbientArg = t
	if f.SetAmbientErr != nil {
		return f.SetAmbientErr
	}
	f.S.Weather.AmbientTemperature = t
	return nil
}

func (f *FakeMonitorService) SetWindSpeed(v float64) error {
	f.SetWindSpeedCalled = true
	f.SetWindSpeedArg = v
	if f.SetWindSpeedErr != nil {
		return f.SetWindSpeedErr
	}
	f.S.Weather.WindSpeed = v
	return nil
}

func (f *FakeMonitorService) SetWindAngle(deg float64) error {
	f.SetWindAngleCalled = true
	f.SetWindAngleArg = deg
	if f.SetWindAngleErr != nil {
		return f.SetWindAngleErr
	}
	f.S.Weather.WindAngle = deg
	return nil
}

func (f *FakeMonitorService) SetCurrent(amps float64) error {
	f.SetCurrentCalled = true
	f.SetCurrentArg = amps
	if f.SetCurrentErr != nil {
		return f.SetCurrentErr
	}
	f.S.Current = amps
	return nil
}

func (f *FakeMonitorService) SetMaxTemperature(t float64) error {
	f.SetMaxTempCalled = true
	f.SetMaxTempArg = t
	if f.SetMaxTempErr != nil {
		return f.SetMaxTempErr
	}
	f.S.MaxTemp = t
	return nil
}

func (f *FakeMonitorService) Transient(finalCurrent float64, dt time.Duration, steps int) ([]ieee738.ThermalState, error) {
	f.TransientCalled = true
	f.TransientCurrent = finalCurrent
	f.TransientDt = dt
	f.TransientSteps = steps
	if f.TransientErr != nil {
		return nil, f.TransientErr
	}
	out := make([]ieee738.ThermalState, 0, steps+1)
	for i := 0; i <= steps; i++ {
		out = append(out, ieee738.ThermalState{
			Elapsed:     time.Duration(i) * dt,
			Temperature: f.S.ConductorTemperature + float64(i),
		})
	}
	return out, nil
}

func (f *FakeMonitorService) SettlingTime(finalCurrent, target float64, dt time.Duration, maxSteps int) (time.Duration, error) {
	f.SettlingCalled = true
	if f.SettlingErr != nil {
		return 0, f.SettlingErr
	}
	return f.SettlingResult, nil
}
