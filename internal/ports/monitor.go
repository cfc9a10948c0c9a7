package ports

import (
	"time"

	"github.com/gridsense-io/ampacity/internal/ieee738"
	"github.com/gridsense-io/ampacity/internal/monitor"
)

// MonitorService is the control-plane port used by controllers
// (HTTP/MQTT/Modbus).
type MonitorService interface {
	Get() monitor.Snapshot
	SetEnabled(bool)
	SetAmbientTemperature(float64) error
	SetWindSpeed(float64) error
	SetWindAngle(float64) error
	SetCurrent(float64) error
	SetMaxTemperature(float64) error
	Transient(finalCurrent float64, dt time.Duration, steps int) ([]ieee738.ThermalState, error)
	SettlingTime(finalCurrent, target float64, dt time.Duration, maxSteps int) (time.Duration, error)
}
