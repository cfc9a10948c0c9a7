package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/gridsense-io/ampacity/internal/ports"
)

// Register map. Values are scaled fixed-point int16.
//
//	Coil 0              enabled
//	Input register 0    conductor temperature [°C × 100]
//	Input register 1    ampacity rating       [A × 10]
//	Holding register 0  load current          [A × 10]
//	Holding register 1  max temperature       [°C × 100]
//	Holding register 2  ambient temperature   [°C × 100]
//	Holding register 3  wind speed            [m/s × 100]
//	Holding register 4  wind angle            [deg × 10]
const (
	regCurrent = iota
	regMaxTemperature
	regAmbientTemperature
	regWindSpeed
	regWindAngle
	holdingRegCount
)

const inputRegCount = 2

// Config for the Modbus controller. Reads are served straight from the
// monitor service by the function handlers, so there is nothing to sync on
// an interval.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // Modbus slave/unit ID, 1..247.
}

type Controller struct {
	svc ports.MonitorService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.MonitorService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server with handlers that apply writes immediately
// and serve reads straight from the monitor service. It blocks until ctx is
// canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races
	// inside mbserver between registration and the server's goroutines.

	// Read Coils (function 1) - coil 0 is the enabled flag.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(data[0:2])
		qty := binary.BigEndian.Uint16(data[2:4])
		if qty == 0 || qty > 2000 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start != 0 || qty != 1 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Get()
		coilByte := byte(0)
		if snap.Enabled {
			coilByte = 0x01
		}
		return []byte{1, coilByte}, &mbserver.Success
	})

	// Read Holding Registers (function 3) - writable operating inputs.
	serv.RegisterFunctionHandler(3, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > holdingRegCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Get()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			switch start + i {
			case regCurrent:
				regs = append(regs, encodeScaled(snap.Current, currentScale))
			case regMaxTemperature:
				regs = append(regs, encodeScaled(snap.MaxTemp, temperatureScale))
			case regAmbientTemperature:
				regs = append(regs, encodeScaled(snap.Weather.AmbientTemperature, temperatureScale))
			case regWindSpeed:
				regs = append(regs, encodeScaled(snap.Weather.WindSpeed, speedScale))
			case regWindAngle:
				regs = append(regs, encodeScaled(snap.Weather.WindAngle, angleScale))
			default:
				return []byte{}, &mbserver.IllegalDataAddress
			}
		}
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Read Input Registers (function 4) - computed values.
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > inputRegCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		snap := c.svc.Get()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			switch start + i {
			case 0:
				regs = append(regs, encodeScaled(snap.ConductorTemperature, temperatureScale))
			case 1:
				regs = append(regs, encodeScaled(snap.Rating, currentScale))
			default:
				return []byte{}, &mbserver.IllegalDataAddress
			}
		}
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Write Single Coil (function 5) - enabled.
	serv.RegisterFunctionHandler(5, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if addr != 0 {
			return []byte{}, &mbserver.IllegalDataAddress
		}

		var enabled bool
		switch value {
		case 0x0000:
			enabled = false
		case 0xFF00:
			enabled = true
		default:
			return []byte{}, &mbserver.IllegalDataValue
		}

		c.svc.SetEnabled(enabled)

		// echo request (address + value)
		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Single Register (function 6)
	serv.RegisterFunctionHandler(6, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if exc := c.writeRegister(int(addr), value); exc != nil {
			return []byte{}, exc
		}

		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Multiple Registers (function 16)
	serv.RegisterFunctionHandler(16, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		d := frame.GetData()
		if len(d) < 5 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(d[0:2])
		quantity := binary.BigEndian.Uint16(d[2:4])
		byteCount := int(d[4])
		if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
			return []byte{}, &mbserver.IllegalDataValue
		}
		for i := 0; i < int(quantity); i++ {
			val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
			if exc := c.writeRegister(int(start)+i, val); exc != nil {
				return []byte{}, exc
			}
		}

		resp := make([]byte, 4)
		binary.BigEndian.PutUint16(resp[0:2], start)
		binary.BigEndian.PutUint16(resp[2:4], quantity)
		return resp, &mbserver.Success
	})

	// Now start listening after all handlers are registered.
	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func (c *Controller) writeRegister(addr int, value uint16) *mbserver.Exception {
	var err error
	switch addr {
	case regCurrent:
		err = c.svc.SetCurrent(decodeScaled(value, currentScale))
	case regMaxTemperature:
		err = c.svc.SetMaxTemperature(decodeScaled(value, temperatureScale))
	case regAmbientTemperature:
		err = c.svc.SetAmbientTemperature(decodeScaled(value, temperatureScale))
	case regWindSpeed:
		err = c.svc.SetWindSpeed(decodeScaled(value, speedScale))
	case regWindAngle:
		err = c.svc.SetWindAngle(decodeScaled(value, angleScale))
	default:
		return &mbserver.IllegalDataAddress
	}
	if err != nil {
		return &mbserver.IllegalDataValue
	}
	return nil
}

const (
	temperatureScale = 100
	currentScale     = 10
	speedScale       = 100
	angleScale       = 10
)

func encodeScaled(v float64, scale int) uint16 {
	r := min(max(int(math.Round(v*float64(scale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeScaled(u uint16, scale int) float64 {
	i := int16(u)
	return float64(i) / float64(scale)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
