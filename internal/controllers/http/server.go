package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/gridsense-io/ampacity/internal/ieee738"
	"github.com/gridsense-io/ampacity/internal/monitor"
	"github.com/gridsense-io/ampacity/internal/ports"
)

type Server struct {
	svc      ports.MonitorService
	srv      *http.Server
	deviceID string
	upgrader websocket.Upgrader
}

// New returns a runnable server.
func New(svc ports.MonitorService, addr string, deviceID string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		svc:      svc,
		deviceID: deviceID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/rating", s.handleRating)
	mux.HandleFunc("GET /v1/transient", s.handleTransient)
	mux.HandleFunc("GET /v1/transient/ws", s.handleTransientWS)
	mux.HandleFunc("GET /v1/settling_time", s.handleSettlingTime)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/enabled", s.handlePostEnabled)
	mux.HandleFunc("POST /v1/current", s.handlePostCurrent)
	mux.HandleFunc("POST /v1/max_temperature", s.handlePostMaxTemperature)
	mux.HandleFunc("POST /v1/ambient_temperature", s.handlePostAmbientTemperature)
	mux.HandleFunc("POST /v1/wind_speed", s.handlePostWindSpeed)
	mux.HandleFunc("POST /v1/wind_angle", s.handlePostWindAngle)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID             string  `json:"device_id"`
	Enabled              bool    `json:"enabled"`
	Current              float64 `json:"current"`
	MaxTemperature       float64 `json:"max_temperature"`
	AmbientTemperature   float64 `json:"ambient_temperature"`
	WindSpeed            float64 `json:"wind_speed"`
	WindAngle            float64 `json:"wind_angle"`
	ConductorTemperature float64 `json:"conductor_temperature"`
	Rating               float64 `json:"rating"`
}

func toDTO(s monitor.Snapshot) snapshotDTO {
	return snapshotDTO{
		Enabled:              s.Enabled,
		Current:              s.Current,
		MaxTemperature:       s.MaxTemp,
		AmbientTemperature:   s.Weather.AmbientTemperature,
		WindSpeed:            s.Weather.WindSpeed,
		WindAngle:            s.Weather.WindAngle,
		ConductorTemperature: s.ConductorTemperature,
		Rating:               s.Rating,
	}
}

type sampleDTO struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Temperature    float64 `json:"temperature"`
}

func toSampleDTO(st ieee738.ThermalState) sampleDTO {
	return sampleDTO{
		ElapsedSeconds: st.Elapsed.Seconds(),
		Temperature:    st.Temperature,
	}
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

// handleRating serves just the ampacity rating, for pollers that do not want
// the whole snapshot.
func (s *Server) handleRating(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": s.deviceID,
		"rating":    s.svc.Get().Rating,
	})
}

func (s *Server) handlePostEnabled(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v bool) error {
		s.svc.SetEnabled(v)
		return nil
	})
}

func (s *Server) handlePostCurrent(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetCurrent(v)
	})
}

func (s *Server) handlePostMaxTemperature(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetMaxTemperature(v)
	})
}

func (s *Server) handlePostAmbientTemperature(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetAmbientTemperature(v)
	})
}

func (s *Server) handlePostWindSpeed(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetWindSpeed(v)
	})
}

func (s *Server) handlePostWindAngle(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetWindAngle(v)
	})
}

// transientQuery parses ?current=&dt=&steps= shared by the JSON and
// websocket transient endpoints.
func transientQuery(r *http.Request) (current float64, dt time.Duration, steps int, err error) {
	q := r.URL.Query()
	current, err = strconv.ParseFloat(q.Get("current"), 64)
	if err != nil {
		return 0, 0, 0, errors.New("invalid or missing 'current'")
	}
	dt, err = time.ParseDuration(q.Get("dt"))
	if err != nil {
		return 0, 0, 0, errors.New("invalid or missing 'dt'")
	}
	steps, err = strconv.Atoi(q.Get("steps"))
	if err != nil {
		return 0, 0, 0, errors.New("invalid or missing 'steps'")
	}
	return current, dt, steps, nil
}

func (s *Server) handleTransient(w http.ResponseWriter, r *http.Request) {
	current, dt, steps, err := transientQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	states, err := s.svc.Transient(current, dt, steps)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	samples := make([]sampleDTO, 0, len(states))
	for _, st := range states {
		samples = append(samples, toSampleDTO(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": s.deviceID,
		"current":   current,
		"samples":   samples,
	})
}

// handleTransientWS streams the transient trajectory one sample per message,
// then closes. Clients plotting long trajectories get data as it is
// produced instead of one large payload.
func (s *Server) handleTransientWS(w http.ResponseWriter, r *http.Request) {
	current, dt, steps, err := transientQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	states, err := s.svc.Transient(current, dt, steps)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for _, st := range states {
		if err := conn.WriteJSON(toSampleDTO(st)); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) handleSettlingTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	current, err := strconv.ParseFloat(q.Get("current"), 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid or missing 'current'")
		return
	}
	target, err := strconv.ParseFloat(q.Get("target"), 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid or missing 'target'")
		return
	}
	dt, err := time.ParseDuration(q.Get("dt"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid or missing 'dt'")
		return
	}
	maxSteps, err := strconv.Atoi(q.Get("max_steps"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid or missing 'max_steps'")
		return
	}

	elapsed, err := s.svc.SettlingTime(current, target, dt, maxSteps)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":        s.deviceID,
		"settling_seconds": elapsed.Seconds(),
	})
}

// ---- generic helpers ----

func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
