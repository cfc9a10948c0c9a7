package modbusctrl

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/gridsense-io/ampacity/internal/testutil"
)

var errRejected = errors.New("value rejected")

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

// startController runs a controller on a free port and returns a connected
// client against it.
func startController(t *testing.T) (*testutil.FakeMonitorService, modbus.Client) {
	t.Helper()

	fake := testutil.NewFakeMonitorService()
	addr := freeAddr(t)
	c, err := New(fake, Config{DeviceID: "span-1", Addr: addr, UnitID: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = c.Run(ctx) }()

	// Wait for the listener to come up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up on %s", addr)
		}
		time.Sleep(5 * time.Millisecond)
	}

	handler := modbus.NewTCPClientHandler(addr)
	handler.SlaveId = 1
	handler.Timeout = 2 * time.Second
	if err := handler.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { handler.Close() })

	return fake, modbus.NewClient(handler)
}

func TestNewValidation(t *testing.T) {
	fake := testutil.NewFakeMonitorService()

	if _, err := New(fake, Config{DeviceID: "span-1"}); err == nil {
		t.Error("zero UnitID accepted")
	}

	c, err := New(fake, Config{DeviceID: "span-1", UnitID: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.cfg.Addr != "127.0.0.1:1502" {
		t.Errorf("default Addr = %q", c.cfg.Addr)
	}
}

func TestReadCoils(t *testing.T) {
	_, client := startController(t)

	res, err := client.ReadCoils(0, 1)
	if err != nil {
		t.Fatalf("ReadCoils: %v", err)
	}
	if len(res) != 1 || res[0]&0x01 != 0x01 {
		t.Errorf("coil bytes = %v, want enabled bit set", res)
	}
}

func TestReadInputRegisters(t *testing.T) {
	_, client := startController(t)

	res, err := client.ReadInputRegisters(0, 2)
	if err != nil {
		t.Fatalf("ReadInputRegisters: %v", err)
	}
	if len(res) != 4 {
		t.Fatalf("response length = %d, want 4", len(res))
	}
	// 85.5 °C × 100 and 1150 A × 10.
	if got := uint16(res[0])<<8 | uint16(res[1]); got != 8550 {
		t.Errorf("conductor temperature register = %d, want 8550", got)
	}
	if got := uint16(res[2])<<8 | uint16(res[3]); got != 11500 {
		t.Errorf("rating register = %d, want 11500", got)
	}
}

func TestReadHoldingRegisters(t *testing.T) {
	_, client := startController(t)

	res, err := client.ReadHoldingRegisters(0, holdingRegCount)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}

	want := []uint16{10000, 10000, 4000, 61, 900}
	for i, w := range want {
		got := uint16(res[i*2])<<8 | uint16(res[i*2+1])
		if got != w {
			t.Errorf("holding register %d = %d, want %d", i, got, w)
		}
	}

	if _, err := client.ReadHoldingRegisters(0, holdingRegCount+1); err == nil {
		t.Error("read past the register map accepted")
	}
}

func TestWriteSingleCoil(t *testing.T) {
	fake, client := startController(t)

	if _, err := client.WriteSingleCoil(0, 0x0000); err != nil {
		t.Fatalf("WriteSingleCoil: %v", err)
	}
	if !fake.SetEnabledCalled || fake.SetEnabledArg {
		t.Errorf("SetEnabled not called with false")
	}

	if _, err := client.WriteSingleCoil(1, 0xFF00); err == nil {
		t.Error("write to coil 1 accepted")
	}
}

func TestWriteSingleRegister(t *testing.T) {
	fake, client := startController(t)

	// 1200 A × 10.
	if _, err := client.WriteSingleRegister(regCurrent, 12000); err != nil {
		t.Fatalf("WriteSingleRegister: %v", err)
	}
	if !fake.SetCurrentCalled || fake.SetCurrentArg != 1200 {
		t.Errorf("SetCurrent arg = %v, want 1200", fake.SetCurrentArg)
	}

	// 95.5 °C × 100.
	if _, err := client.WriteSingleRegister(regMaxTemperature, 9550); err != nil {
		t.Fatalf("WriteSingleRegister: %v", err)
	}
	if !fake.SetMaxTempCalled || fake.SetMaxTempArg != 95.5 {
		t.Errorf("SetMaxTemperature arg = %v, want 95.5", fake.SetMaxTempArg)
	}

	if _, err := client.WriteSingleRegister(holdingRegCount, 1); err == nil {
		t.Error("write past the register map accepted")
	}
}

func TestWriteSingleRegisterRejected(t *testing.T) {
	fake, client := startController(t)
	fake.SetCurrentErr = errRejected

	if _, err := client.WriteSingleRegister(regCurrent, 100); err == nil {
		t.Error("rejected value did not surface a Modbus exception")
	}
}

func TestWriteMultipleRegisters(t *testing.T) {
	fake, client := startController(t)

	// Ambient 25.00 °C then wind speed 2.00 m/s, starting at register 2.
	payload := []byte{0x09, 0xC4, 0x00, 0xC8}
	if _, err := client.WriteMultipleRegisters(regAmbientTemperature, 2, payload); err != nil {
		t.Fatalf("WriteMultipleRegisters: %v", err)
	}
	if !fake.SetAmbientCalled || fake.SetAmbientArg != 25 {
		t.Errorf("SetAmbientTemperature arg = %v, want 25", fake.SetAmbientArg)
	}
	if !fake.SetWindSpeedCalled || fake.SetWindSpeedArg != 2 {
		t.Errorf("SetWindSpeed arg = %v, want 2", fake.SetWindSpeedArg)
	}
}

func TestScaledCodec(t *testing.T) {
	negThousand := int16(-1000)
	tests := []struct {
		v     float64
		scale int
		want  uint16
	}{
		{85.5, temperatureScale, 8550},
		{-10, temperatureScale, uint16(negThousand)},
		{1150, currentScale, 11500},
		{1e9, currentScale, 0x7FFF}, // clamps at int16 max
	}

	for _, tt := range tests {
		if got := encodeScaled(tt.v, tt.scale); got != tt.want {
			t.Errorf("encodeScaled(%v, %d) = %d, want %d", tt.v, tt.scale, got, tt.want)
		}
	}

	if got := decodeScaled(uint16(negThousand), temperatureScale); got != -10 {
		t.Errorf("decodeScaled = %v, want -10", got)
	}
}
