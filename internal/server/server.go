// Package server exposes the nearby-postal-code search over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/proximity"
	"github.com/geowerk/postal-cli/internal/store"
)

// Server routes nearby queries against stored coordinate snapshots.
type Server struct {
	store           store.Store
	defaultRadiusKM float64
}

// New creates a Server backed by the given snapshot store.
func New(st store.Store, defaultRadiusKM float64) *Server {
	if defaultRadiusKM <= 0 {
		defaultRadiusKM = proximity.DefaultRadiusKM
	}
	return &Server{store: st, defaultRadiusKM: defaultRadiusKM}
}

// Router builds the chi router with the API routes mounted.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.StripSlashes)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/health", s.handleHealth)
	r.Get("/nearby", s.handleNearby)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// nearbyResponse is the JSON shape of a successful nearby query.
type nearbyResponse struct {
	Country  string        `json:"country"`
	RadiusKM float64       `json:"radius_km"`
	Bounding bool          `json:"bounding"`
	Count    int           `json:"count"`
	Matches  []nearbyMatch `json:"matches"`
}

type nearbyMatch struct {
	PostalCode string   `json:"postal_code"`
	City       string   `json:"city"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	country, err := model.ParseCountry(q.Get("country"))
	if err != nil {
		abort(w, http.StatusBadRequest, err.Error())
		return
	}

	radius := s.defaultRadiusKM
	if raw := q.Get("radius_km"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			abort(w, http.StatusBadRequest, "radius_km must be a number")
			return
		}
	}
	bounding := q.Get("bounding") == "true"

	records, err := s.store.LoadRecords(r.Context(), country, model.StageCoordinates)
	if err != nil {
		zap.L().Error("server: load coordinates snapshot",
			zap.String("country", country.String()),
			zap.Error(err),
		)
		abort(w, http.StatusNotFound, "no coordinates snapshot for "+country.String())
		return
	}

	ref := proximity.Reference{PostalCode: q.Get("code"), City: q.Get("city")}
	searcher := proximity.NewSearcher(records)

	var matches []proximity.Match
	if bounding {
		matches, err = searcher.ByBounding(ref, radius)
	} else {
		matches, err = searcher.ByDistance(ref, radius)
	}
	if err != nil {
		abort(w, statusFor(err), err.Error())
		return
	}

	resp := nearbyResponse{
		Country:  country.String(),
		RadiusKM: radius,
		Bounding: bounding,
		Count:    len(matches),
		Matches:  make([]nearbyMatch, 0, len(matches)),
	}
	for _, m := range matches {
		nm := nearbyMatch{
			PostalCode: m.Record.PostalCode,
			City:       m.Record.City,
			Latitude:   *m.Record.Latitude,
			Longitude:  *m.Record.Longitude,
		}
		if !bounding {
			d := m.DistanceKM
			nm.DistanceKM = &d
		}
		resp.Matches = append(resp.Matches, nm)
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps the search failure taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, proximity.ErrInvalidRadius),
		errors.Is(err, proximity.ErrMissingReference):
		return http.StatusBadRequest
	case errors.Is(err, proximity.ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, proximity.ErrNoGeocodedData):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abort(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}
