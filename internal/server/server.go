package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"solarcast/internal/api"
	"solarcast/internal/database"
	"solarcast/internal/forecast"
	"solarcast/internal/models"
	"solarcast/internal/report"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ForecastRequest overrides parts of the default site for an ad hoc forecast.
// Omitted fields fall back to the default site.
type ForecastRequest struct {
	Name       string   `json:"name,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Tilt       *float64 `json:"tilt,omitempty"`
	Azimuth    *float64 `json:"azimuth,omitempty"`
	CapacityKW *float64 `json:"capacity_kw,omitempty"`
}

// SiteStore is the persisted site registry and observation history
type SiteStore interface {
	GetAllSites() ([]models.Site, error)
	GetSiteByName(name string) (*models.Site, error)
	GetObservations(site string, since time.Time) ([]models.SkyObservation, error)
}

// Server represents the HTTP server
type Server struct {
	runner      *forecast.Runner
	store       SiteStore
	defaultSite models.Site
	sites       []models.Site
	display     *time.Location
	mux         *http.ServeMux
}

// NewServer creates a new HTTP server. store may be nil when no database is configured.
func NewServer(runner *forecast.Runner, store SiteStore, defaultSite models.Site, sites []models.Site, display *time.Location) *Server {
	if display == nil {
		display = time.UTC
	}

	s := &Server{
		runner:      runner,
		store:       store,
		defaultSite: defaultSite,
		sites:       sites,
		display:     display,
		mux:         http.NewServeMux(),
	}

	// Register routes
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/forecast", s.handleForecast)
	s.mux.HandleFunc("/sites", s.handleSites)
	s.mux.HandleFunc("/sites/forecast", s.handleSiteForecast)
	s.mux.HandleFunc("/observations", s.handleObservations)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler exposes the route table
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().String(),
	})
}

// handleForecast runs the pipeline for the default site, optionally overridden by the request body
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	site := req.apply(s.defaultSite)

	if site.Location.Latitude < -90 || site.Location.Latitude > 90 {
		http.Error(w, "Latitude must be between -90 and 90", http.StatusBadRequest)
		return
	}

	if site.Location.Longitude < -180 || site.Location.Longitude > 180 {
		http.Error(w, "Longitude must be between -180 and 180", http.StatusBadRequest)
		return
	}

	fc, err := s.runner.Forecast(r.Context(), site)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeForecast(w, r, fc)
}

func (req ForecastRequest) apply(site models.Site) models.Site {
	if req.Name != "" {
		site.Name = req.Name
	}
	if req.Latitude != nil {
		site.Location.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		site.Location.Longitude = *req.Longitude
	}
	if req.Tilt != nil {
		site.Orientation.Tilt = *req.Tilt
	}
	if req.Azimuth != nil {
		site.Orientation.Azimuth = *req.Azimuth
	}
	if req.CapacityKW != nil {
		site.CapacityKW = *req.CapacityKW
	}
	return site
}

// handleSites lists configured sites followed by those registered in the database
func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	sites := append([]models.Site{}, s.sites...)

	if s.store != nil {
		stored, err := s.store.GetAllSites()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		seen := make(map[string]bool, len(sites))
		for _, site := range sites {
			seen[site.Name] = true
		}
		for _, site := range stored {
			if !seen[site.Name] {
				sites = append(sites, site)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count": len(sites),
		"sites": sites,
	})
}

// handleSiteForecast runs the pipeline for a named site
func (s *Server) handleSiteForecast(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	site, err := s.lookupSite(name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	fc, err := s.runner.Forecast(r.Context(), *site)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeForecast(w, r, fc)
}

func (s *Server) lookupSite(name string) (*models.Site, error) {
	for _, site := range s.sites {
		if site.Name == name {
			found := site
			return &found, nil
		}
	}

	if s.store == nil {
		return nil, database.ErrSiteNotFound
	}
	return s.store.GetSiteByName(name)
}

// handleObservations returns the stored weather for a site
func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}

	site := r.URL.Query().Get("site")
	if site == "" {
		http.Error(w, "site is required", http.StatusBadRequest)
		return
	}

	hoursStr := r.URL.Query().Get("hours")
	hours := 24
	if hoursStr != "" {
		if h, err := strconv.Atoi(hoursStr); err == nil {
			hours = h
		}
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	obs, err := s.store.GetObservations(site, since)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"site":         site,
		"hours":        hours,
		"count":        len(obs),
		"observations": obs,
	})
}

// writeForecast renders fc as JSON, or as CSV or an HTML chart when ?format= asks for it
func (s *Server) writeForecast(w http.ResponseWriter, r *http.Request, fc *models.SiteForecast) {
	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := report.WriteTable(w, fc.Rows, s.display); err != nil {
			log.Printf("Failed to write table for %s: %v", fc.Site.Name, err)
		}
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.RenderChart(w, fc, s.display); err != nil {
			log.Printf("Failed to render chart for %s: %v", fc.Site.Name, err)
		}
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"site":         fc.Site,
			"headline":     report.Headline(fc, s.display),
			"result":       fc.Result,
			"rows":         fc.Rows,
			"generated_at": fc.GeneratedAt,
		})
	}
}

// writeError maps pipeline failures onto status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrSiteNotFound):
		status = http.StatusNotFound
	case errors.Is(err, api.ErrWeatherUnavailable):
		status = http.StatusBadGateway
	default:
		switch models.KindOf(err) {
		case models.KindConfiguration:
			status = http.StatusBadRequest
		case models.KindData:
			status = http.StatusUnprocessableEntity
		case models.KindDependency:
			status = http.StatusServiceUnavailable
		}
	}

	log.Printf("❌ %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  string(models.KindOf(err)),
	})
}
