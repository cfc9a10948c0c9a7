package httpctrl

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridsense-io/ampacity/internal/testutil"
)

func newTestServer(t *testing.T) (*testutil.FakeMonitorService, *httptest.Server) {
	t.Helper()
	fake := testutil.NewFakeMonitorService()
	s := New(fake, ":0", "span-1")
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return fake, ts
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestGetSnapshot(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1")
	if err != nil {
		t.Fatalf("GET /v1: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var dto snapshotDTO
	decodeBody(t, resp, &dto)

	if dto.DeviceID != "span-1" {
		t.Errorf("device_id = %q, want span-1", dto.DeviceID)
	}
	if !dto.Enabled || dto.Current != 1000 || dto.MaxTemperature != 100 {
		t.Errorf("snapshot = %+v", dto)
	}
	if dto.ConductorTemperature != 85.5 || dto.Rating != 1150 {
		t.Errorf("derived values = %+v", dto)
	}
}

func TestGetRating(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/rating")
	if err != nil {
		t.Fatalf("GET /v1/rating: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		DeviceID string  `json:"device_id"`
		Rating   float64 `json:"rating"`
	}
	decodeBody(t, resp, &body)

	if body.DeviceID != "span-1" {
		t.Errorf("device_id = %q, want span-1", body.DeviceID)
	}
	if body.Rating != 1150 {
		t.Errorf("rating = %v, want 1150", body.Rating)
	}
}

func TestPostValues(t *testing.T) {
	tests := []struct {
		path  string
		body  string
		check func(*testutil.FakeMonitorService) bool
	}{
		{"/v1/enabled", `{"value": false}`, func(f *testutil.FakeMonitorService) bool {
			return f.SetEnabledCalled && !f.SetEnabledArg
		}},
		{"/v1/current", `{"value": 1200}`, func(f *testutil.FakeMonitorService) bool {
			return f.SetCurrentCalled && f.SetCurrentArg == 1200
		}},
		{"/v1/max_temperature", `{"value": 90}`, func(f *testutil.FakeMonitorService) bool {
			return f.SetMaxTempCalled && f.SetMaxTempArg == 90
		}},
		{"/v1/ambient_temperature", `{"value": 35}`, func(f *testutil.FakeMonitorService) bool {
			return f.SetAmbientCalled && f.SetAmbientArg == 35
		}},
		{"/v1/wind_speed", `{"value": 2.5}`, func(f *testutil.FakeMonitorService) bool {
			return f.SetWindSpeedCalled && f.SetWindSpeedArg == 2.5
		}},
		{"/v1/wind_angle", `{"value": 45}`, func(f *testutil.FakeMonitorService) bool {
			return f.SetWindAngleCalled && f.SetWindAngleArg == 45
		}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fake, ts := newTestServer(t)

			resp, err := http.Post(ts.URL+tt.path, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST %s: %v", tt.path, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if !tt.check(fake) {
				t.Errorf("service not called with the posted value")
			}
		})
	}
}

func TestPostRejections(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, ts := newTestServer(t)
		resp, err := http.Post(ts.URL+"/v1/current", "application/json", strings.NewReader("{"))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("missing value field", func(t *testing.T) {
		_, ts := newTestServer(t)
		resp, err := http.Post(ts.URL+"/v1/current", "application/json", strings.NewReader(`{"val": 1}`))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("service rejects value", func(t *testing.T) {
		fake, ts := newTestServer(t)
		fake.SetCurrentErr = errors.New("current must not be negative")

		resp, err := http.Post(ts.URL+"/v1/current", "application/json", strings.NewReader(`{"value": -5}`))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		var body map[string]string
		decodeBody(t, resp, &body)
		if body["error"] == "" {
			t.Errorf("error body = %v, want a message", body)
		}
	})
}

func TestTransientEndpoint(t *testing.T) {
	fake, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/transient?current=1200&dt=10s&steps=3")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		DeviceID string      `json:"device_id"`
		Current  float64     `json:"current"`
		Samples  []sampleDTO `json:"samples"`
	}
	decodeBody(t, resp, &body)

	if !fake.TransientCalled || fake.TransientCurrent != 1200 ||
		fake.TransientDt != 10*time.Second || fake.TransientSteps != 3 {
		t.Errorf("service called with (%v, %v, %v)",
			fake.TransientCurrent, fake.TransientDt, fake.TransientSteps)
	}
	if len(body.Samples) != 4 {
		t.Fatalf("samples = %d, want 4", len(body.Samples))
	}
	if body.Samples[1].ElapsedSeconds != 10 {
		t.Errorf("sample 1 elapsed = %v, want 10", body.Samples[1].ElapsedSeconds)
	}
}

func TestTransientEndpointBadQuery(t *testing.T) {
	_, ts := newTestServer(t)

	for _, q := range []string{"", "?current=abc&dt=10s&steps=3", "?current=1200&dt=10&steps=3", "?current=1200&dt=10s"} {
		resp, err := http.Get(ts.URL + "/v1/transient" + q)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestTransientWebsocket(t *testing.T) {
	_, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/transient/ws?current=1200&dt=5s&steps=2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var samples []sampleDTO
	for {
		var s sampleDTO
		if err := conn.ReadJSON(&s); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			t.Fatalf("read: %v", err)
		}
		samples = append(samples, s)
	}

	if len(samples) != 3 {
		t.Fatalf("streamed samples = %d, want 3", len(samples))
	}
	if samples[2].ElapsedSeconds != 10 {
		t.Errorf("last sample elapsed = %v, want 10", samples[2].ElapsedSeconds)
	}
}

func TestSettlingTimeEndpoint(t *testing.T) {
	fake, ts := newTestServer(t)
	fake.SettlingResult = 90 * time.Second

	resp, err := http.Get(ts.URL + "/v1/settling_time?current=1200&target=95&dt=1s&max_steps=1000")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		SettlingSeconds float64 `json:"settling_seconds"`
	}
	decodeBody(t, resp, &body)
	if body.SettlingSeconds != 90 {
		t.Errorf("settling_seconds = %v, want 90", body.SettlingSeconds)
	}

	t.Run("solver failure maps to 422", func(t *testing.T) {
		fake.SettlingErr = errors.New("temperature never crossed the target")
		resp, err := http.Get(ts.URL + "/v1/settling_time?current=1200&target=500&dt=1s&max_steps=10")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
	})
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
