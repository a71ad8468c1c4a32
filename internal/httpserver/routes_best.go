// internal/httpserver/routes_best.go
//
// Read-only routes around best scores and the dataset.
//   - GET /best           → the caller's best loop score (anon cookie identity)
//   - GET /best/top       → top players by best score (?limit=, default 20, max 100)
//   - GET /countries      → playable dataset summary

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/tradeloop/internal/bestscore"
	"github.com/robalobadob/tradeloop/internal/countries"
)

const maxTop = 100

// mountBest registers /best routes.
func (s *Server) mountBest(r chi.Router) {
	r.Route("/best", func(r chi.Router) {
		r.Get("/", s.handleBest)
		r.Get("/top", s.handleTop)
	})
}

type bestRes struct {
	PlayerID string  `json:"playerId"`
	Best     float64 `json:"best"`
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	pid := s.ensureAnonID(w, r)
	best, err := s.best.Best(r.Context(), pid)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(bestRes{PlayerID: pid, Best: best})
}

type topRes struct {
	Top []bestscore.Entry `json:"top"`
}

// handleTop returns the leaderboard.
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxTop)
	}
	rows, err := s.best.Top(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if rows == nil {
		rows = []bestscore.Entry{}
	}
	_ = json.NewEncoder(w).Encode(topRes{Top: rows})
}

type countryRes struct {
	Name     string `json:"name"`
	ISOCode  string `json:"isoCode"`
	Flag     string `json:"flag"`
	Partners int    `json:"partners"`
}

type countriesRes struct {
	Generation int64        `json:"generation"` // bumps on every successful reload
	Countries  []countryRes `json:"countries"`
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	g := s.catalog.Graph()
	out := countriesRes{Generation: s.catalog.Generation(), Countries: make([]countryRes, 0, g.Len())}
	for _, c := range g.Countries() {
		out.Countries = append(out.Countries, countryRes{
			Name:     c.Name,
			ISOCode:  c.ISOCode,
			Flag:     countries.FlagURL(c.ISOCode),
			Partners: c.PartnerCount(),
		})
	}
	_ = json.NewEncoder(w).Encode(out)
}
