// Package admin exposes a small HTTP surface to observe and steer a
// campaign while it runs.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/sim"
)

// Controller is the slice of the campaign the admin surface needs: the
// run in flight and the stop switch.
type Controller interface {
	Runner() *sim.Runner
	Stop()
}

type Server struct {
	Campaign Controller
	scn      *scenario.Scenario
	tpl      *template.Template
	mux      *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(campaign Controller, scn *scenario.Scenario) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{Campaign: campaign, scn: scn, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/actors", s.handleActors)
	s.mux.HandleFunc("/events", s.handleEvents)
	s.mux.HandleFunc("/alerts", s.handleAlerts)
	s.mux.HandleFunc("/scenario", s.handleScenario)
	s.mux.HandleFunc("/inject-rule", s.handleInjectRule)
	s.mux.HandleFunc("/stop", s.handleStop)
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

// status reports IDLE between rounds so the surface stays usable for the
// whole campaign, not just while a run is in flight.
func (s *Server) status() sim.RunStatus {
	if r := s.Campaign.Runner(); r != nil {
		return r.Status()
	}
	return sim.RunStatus{Scenario: s.scn.Name, Phase: sim.PhaseIdle}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var alerts []rules.Alert
	if run := s.Campaign.Runner(); run != nil {
		alerts = run.Alerts()
	}
	data := struct {
		Status  sim.RunStatus
		Sensors int
		Rules   int
		Alerts  []rules.Alert
	}{
		Status:  s.status(),
		Sensors: len(s.scn.Sensors),
		Rules:   len(s.scn.Rules),
		Alerts:  alerts,
	}
	s.tpl.Execute(w, data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleActors(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	run := s.Campaign.Runner()
	if run == nil {
		json.NewEncoder(w).Encode([]sim.ActorSnapshot{})
		return
	}
	json.NewEncoder(w).Encode(run.ActorSnapshots())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	run := s.Campaign.Runner()
	if run == nil {
		json.NewEncoder(w).Encode([]any{})
		return
	}
	json.NewEncoder(w).Encode(run.LastEvents())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	run := s.Campaign.Runner()
	if run == nil {
		json.NewEncoder(w).Encode([]rules.Alert{})
		return
	}
	json.NewEncoder(w).Encode(run.Alerts())
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    s.scn.Name,
		"weather": s.scn.Weather,
		"entry":   s.scn.Entry,
		"target":  s.scn.Target,
		"pois":    len(s.scn.POIs),
		"sensors": s.scn.Sensors,
		"rules":   s.scn.Rules,
	})
}

func (s *Server) handleInjectRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var spec rules.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	run := s.Campaign.Runner()
	if run == nil {
		http.Error(w, "no run in flight", http.StatusConflict)
		return
	}
	if !run.InjectRule(spec) {
		http.Error(w, "unknown rule kind", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.Campaign.Stop()
	w.WriteHeader(http.StatusNoContent)
}
