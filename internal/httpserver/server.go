// internal/httpserver/server.go
//
// HTTP server wiring for the trade-loop backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     request logging, metrics).
//   - Public endpoints: "/", "/health", "/metrics", "/countries", "/best".
//   - Game endpoints: POST /game/new, then token-gated /game/{id}/* routes.
//   - Error mapping from engine/store errors to JSON status responses.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Each game is a game.Session; handlers only touch the engine through
//     Session.Do, which serialises concurrent requests for one game.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tradeloop/internal/bestscore"
	"github.com/robalobadob/tradeloop/internal/countries"
	"github.com/robalobadob/tradeloop/internal/game"
	"github.com/robalobadob/tradeloop/internal/metrics"
	"github.com/robalobadob/tradeloop/internal/store"
	"github.com/robalobadob/tradeloop/internal/trade"
)

// Options configures a Server.
type Options struct {
	JWTSecret    string
	ClientOrigin string
	Production   bool
	Rules        game.Rules
	DailySalt    string
	TokenTTL     time.Duration // lifetime of game tokens; defaults to 24h
}

// Server bundles router, live sessions, best scores and the event hub.
type Server struct {
	r        *chi.Mux
	opts     Options
	catalog  *countries.Catalog
	sessions store.Store
	best     bestscore.Store
	hub      *Hub
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options, catalog *countries.Catalog, sessions store.Store, best bestscore.Store, hub *Hub) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	s := &Server{r: chi.NewRouter(), opts: opts, catalog: catalog, sessions: sessions, best: best, hub: hub}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // zerolog access log
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(metrics.Middleware)              // latency by route
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"tradeloop","endpoints":["/health","/metrics","/countries","/best","POST /game/new","/game/{id}/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":        true,
			"countries": s.catalog.Graph().Len(),
			"sessions":  s.sessions.Len(),
		})
	})
	s.r.Handle("/metrics", promhttp.Handler())

	s.mountGame(s.r)
	s.mountBest(s.r)
	s.r.Get("/countries", s.handleCountries)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "not_found", r.URL.Path)
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("http server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}

// Janitor returns a session janitor that also disconnects the event
// streams of evicted games.
func (s *Server) Janitor(ttl time.Duration) *store.Janitor {
	return &store.Janitor{
		Store: s.sessions,
		TTL:   ttl,
		OnEvict: func(ids []string) {
			for _, id := range ids {
				s.hub.CloseGame(id)
			}
			metrics.SetSessions(s.sessions.Len())
		},
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

// ------------------------------- errors ------------------------------------

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// jsonError writes {"error": code, "detail": detail} with status.
func jsonError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Detail: detail})
}

// writeErr maps engine and store errors to HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidState):
		jsonError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "game_not_found", err.Error())
	case errors.Is(err, trade.ErrNotFound):
		jsonError(w, http.StatusNotFound, "country_not_found", err.Error())
	case errors.Is(err, bestscore.ErrNoPlayer):
		jsonError(w, http.StatusBadRequest, "no_player", err.Error())
	case errors.Is(err, game.ErrInsufficientData):
		jsonError(w, http.StatusServiceUnavailable, "insufficient_data", err.Error())
	default:
		log.Error().Err(err).Msg("unhandled error")
		jsonError(w, http.StatusInternalServerError, "internal", "")
	}
}
