package monitor

import "errors"

var (
	ErrNegativeCurrent            = errors.New("load current must not be negative")
	ErrNegativeWindSpeed          = errors.New("wind speed must not be negative")
	ErrMaxTemperatureBelowAmbient = errors.New("maximum conductor temperature must be above ambient")
)
