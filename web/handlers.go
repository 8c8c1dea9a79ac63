package web

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anibaldeboni/zero-paper/cropwatch/evaluator"
	"github.com/anibaldeboni/zero-paper/cropwatch/pump"
	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
)

// handleRoot handles GET / - returns service information
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	info := map[string]any{
		"service":   "cropwatch",
		"started":   s.systemStartTime,
		"timestamp": time.Now(),
		"endpoints": s.Routes(),
	}

	s.sendJSONResponse(w, info, http.StatusOK)
}

// handleHealth handles GET /health - returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now(),
		"uptime":         time.Since(s.systemStartTime).Round(time.Second).String(),
		"active_profile": s.monitor.ActiveProfile(),
		"metrics":        s.monitor.Metrics(),
		"pumps":          s.pumps != nil,
	}

	s.sendJSONResponse(w, health, http.StatusOK)
}

// handleReadings handles GET /readings - performs one fresh acquisition
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	response := ReadingsResponse{
		Timestamp: time.Now(),
		Readings:  s.monitor.Readings(r.Context()),
	}

	s.sendJSONResponse(w, response, http.StatusOK)
}

// handleProfiles handles GET /profiles - returns the profile table
func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	catalog := s.monitor.Catalog()

	profiles := make(map[string]evaluator.Profile)
	for _, key := range catalog.Keys() {
		p, _ := catalog.Lookup(key)
		profiles[key] = p
	}

	s.sendJSONResponse(w, ProfilesResponse{
		Active:   s.monitor.ActiveProfile(),
		Default:  catalog.Default(),
		Profiles: profiles,
	}, http.StatusOK)
}

// handleEvaluation handles GET /evaluation?profile=key - runs one cycle
func (s *Server) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	snap := s.monitor.Cycle(r.Context(), r.URL.Query().Get("profile"))

	s.sendJSONResponse(w, EvaluationResponse{
		Timestamp: snap.Time,
		Requested: snap.Profile.Requested,
		Profile:   snap.Profile.Profile,
		Fallback:  snap.Profile.Fallback,
		Readings:  snap.Readings,
		Verdicts:  snap.Verdicts,
	}, http.StatusOK)
}

// handlePumps handles GET /pumps - lists the configured pumps
func (s *Server) handlePumps(w http.ResponseWriter, _ *http.Request) {
	if s.pumps == nil {
		s.sendErrorResponse(w, "Pump control not available", http.StatusServiceUnavailable)
		return
	}

	s.sendJSONResponse(w, map[string]any{"pumps": s.pumps.Pumps()}, http.StatusOK)
}

// handleActivatePump handles POST /pumps/{name} - queues an activation
func (s *Server) handleActivatePump(w http.ResponseWriter, r *http.Request) {
	if s.pumps == nil {
		s.sendErrorResponse(w, "Pump control not available", http.StatusServiceUnavailable)
		return
	}

	name := chi.URLParam(r, "name")
	id, err := s.pumps.Activate(name)
	switch {
	case err == nil:
	case errors.Is(err, pump.ErrUnknownPump):
		s.sendErrorResponse(w, "Unknown pump: "+name, http.StatusNotFound)
		return
	case errors.Is(err, queue.ErrQueueFull):
		s.sendErrorResponse(w, "Pump queue is full", http.StatusTooManyRequests)
		return
	case errors.Is(err, queue.ErrQueueClosed):
		s.sendErrorResponse(w, "Pump queue is closed", http.StatusServiceUnavailable)
		return
	default:
		log.Printf("Failed to activate pump %s: %v", name, err)
		s.sendErrorResponse(w, "Failed to activate pump", http.StatusInternalServerError)
		return
	}

	s.sendJSONResponse(w, PumpResponse{
		ID:        id,
		Pump:      name,
		Status:    "queued",
		Timestamp: time.Now(),
	}, http.StatusAccepted)
}

// handleQueue handles GET /queue - returns queue status
func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	if s.queue == nil {
		s.sendErrorResponse(w, "Queue not available", http.StatusServiceUnavailable)
		return
	}

	response := struct {
		queue.QueueStats
		Timestamp time.Time `json:"timestamp"`
	}{s.queue.Stats(), time.Now()}

	s.sendJSONResponse(w, response, http.StatusOK)
}
