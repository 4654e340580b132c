package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rickfu415/landing-control/internal/engine"
	"github.com/rickfu415/landing-control/internal/geometry"
	"github.com/rickfu415/landing-control/internal/recorder"
	"github.com/rickfu415/landing-control/internal/scoring"
	"github.com/rickfu415/landing-control/internal/session"
	"github.com/rickfu415/landing-control/internal/wind"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type createSessionRequest struct {
	Preset        string  `json:"preset"`
	Mode          string  `json:"mode"`
	StartAltitude float64 `json:"start_altitude"`
	WindLevel     *int    `json:"wind_level"`
	WindSeed      int64   `json:"wind_seed"`
	SimpleAero    *bool   `json:"simple_aero"`
}

type sessionInfo struct {
	ID       string          `json:"id"`
	Mode     session.Mode    `json:"mode"`
	Created  time.Time       `json:"created"`
	Paused   bool            `json:"paused"`
	Finished bool            `json:"finished"`
	State    engine.Snapshot `json:"state"`
}

func (s *Server) sessionInfo(sess *session.Session) sessionInfo {
	finished, _ := sess.Finished()
	return sessionInfo{
		ID:       sess.ID,
		Mode:     sess.Mode,
		Created:  sess.Created,
		Paused:   sess.Paused(),
		Finished: finished,
		State:    sess.Snapshot(),
	}
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	type presetInfo struct {
		Name     string  `json:"name"`
		Height   float64 `json:"height"`
		Diameter float64 `json:"diameter"`
		DryMass  float64 `json:"dry_mass"`
		FuelMass float64 `json:"fuel_mass"`
		Thrust   float64 `json:"thrust"`
		ISP      float64 `json:"isp"`
	}
	var out []presetInfo
	for _, name := range geometry.PresetNames() {
		cfg, err := geometry.Preset(name)
		if err != nil {
			continue
		}
		out = append(out, presetInfo{
			Name:     name,
			Height:   cfg.Height,
			Diameter: cfg.Diameter,
			DryMass:  cfg.DryMass,
			FuelMass: cfg.FuelMass,
			Thrust:   cfg.Thrust,
			ISP:      cfg.ISP,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": out})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	d := s.cfg.Defaults
	if req.Preset == "" {
		req.Preset = d.Preset
	}
	if req.StartAltitude == 0 {
		req.StartAltitude = d.StartAltitude
	}
	if req.StartAltitude < 0 {
		writeError(w, http.StatusBadRequest, "start_altitude must be positive")
		return
	}
	mode := session.Mode(req.Mode)
	if req.Mode == "" {
		mode = session.ModeManual
	}
	if !session.ValidMode(mode) {
		writeError(w, http.StatusBadRequest, "mode must be manual, autonomous, or assisted")
		return
	}

	rocketCfg, err := geometry.Preset(req.Preset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	windLevel := d.WindLevel
	if req.WindLevel != nil {
		windLevel = *req.WindLevel
	}
	if windLevel < 0 || windLevel > 9 {
		writeError(w, http.StatusBadRequest, "wind_level must be 0-9")
		return
	}
	windCfg := wind.Config{}
	if windLevel > 0 {
		windCfg = wind.DefaultConfig(windLevel)
	}
	windCfg.Seed = d.WindSeed
	if req.WindSeed != 0 {
		windCfg.Seed = req.WindSeed
	}

	simpleAero := d.SimpleAero
	if req.SimpleAero != nil {
		simpleAero = *req.SimpleAero
	}

	eng, err := engine.New(engine.Config{
		Rocket:     rocketCfg,
		Wind:       windCfg,
		SimpleAero: simpleAero,
		Logger:     s.logger,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := session.New(eng, session.Options{
		Mode:          mode,
		StartAltitude: req.StartAltitude,
		TickInterval:  s.cfg.Defaults.TickInterval,
		TimeStep:      s.cfg.Defaults.TimeStep,
		Logger:        s.logger,
	})
	if err := s.registry.Add(sess); err != nil {
		sess.Close()
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	s.logger.Info("session created",
		"session_id", sess.ID,
		"mode", mode,
		"preset", req.Preset,
		"wind_level", windLevel,
	)
	writeJSON(w, http.StatusCreated, s.sessionInfo(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()
	out := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, s.sessionInfo(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionInfo(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	s.registry.Remove(sess.ID)
	s.logger.Info("session removed", "session_id", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	if sess.Mode == session.ModeAutonomous {
		writeError(w, http.StatusConflict, "autonomous sessions do not accept input")
		return
	}
	var in engine.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess.SetInput(in)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	sess.Pause()
	writeJSON(w, http.StatusOK, s.sessionInfo(sess))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	sess.Resume()
	writeJSON(w, http.StatusOK, s.sessionInfo(sess))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, s.sessionInfo(sess))
}

type flightResponse struct {
	Finished   bool                `json:"finished"`
	Score      *scoring.Breakdown  `json:"score,omitempty"`
	Statistics recorder.Statistics `json:"statistics"`
	Samples    []engine.Snapshot   `json:"samples"`
	Events     []recorder.Event    `json:"events"`
}

func (s *Server) handleFlight(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	finished, score := sess.Finished()
	samples, events := sess.Flight()
	resp := flightResponse{
		Finished:   finished,
		Statistics: sess.Statistics(),
		Samples:    samples,
		Events:     events,
	}
	if finished {
		resp.Score = &score
	}
	writeJSON(w, http.StatusOK, resp)
}
