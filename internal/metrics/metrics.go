// internal/metrics/metrics.go
//
// Prometheus metrics for the game server.
// Responsibilities:
//   - Count rounds, closed loops and started games (fed by engine events).
//   - Track live sessions and dataset reloads.
//   - Time HTTP requests per chi route pattern.
//
// Everything registers on the default registry; /metrics serves it via promhttp.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robalobadob/tradeloop/internal/game"
)

var (
	// roundsTotal counts judged guesses by result
	roundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeloop_rounds_total",
		Help: "Judged guesses by result",
	}, []string{"result"})

	loopsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeloop_loops_closed_total",
		Help: "Streaks that looped back to their start country",
	})

	// loopLength tracks the streak length at closure
	loopLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradeloop_loop_streak_length",
		Help:    "Streak length when a loop closes",
		Buckets: []float64{3, 4, 5, 6, 8, 10, 15, 20},
	})

	gamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeloop_games_started_total",
		Help: "Games created",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradeloop_sessions_active",
		Help: "Live game sessions held in memory",
	})

	datasetReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradeloop_dataset_reloads_total",
		Help: "Country dataset reload attempts by result",
	}, []string{"result"})

	// requestDuration tracks HTTP latency by route pattern
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradeloop_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"method", "route", "status"})
)

// Events feeds engine events into the counters. It is a game.Listener.
type Events struct{}

func (Events) OnEvent(ev game.Event) {
	switch ev.Type {
	case game.EventRoundResolved:
		if p, ok := ev.Payload.(game.RoundResolvedPayload); ok && p.Correct {
			roundsTotal.WithLabelValues("correct").Inc()
		} else {
			roundsTotal.WithLabelValues("incorrect").Inc()
		}
	case game.EventLoopClosed:
		loopsClosed.Inc()
		if p, ok := ev.Payload.(game.LoopClosedPayload); ok {
			loopLength.Observe(float64(p.StreakLength))
		}
	}
}

// GameStarted counts a new game.
func GameStarted() { gamesStarted.Inc() }

// SetSessions records the number of live sessions.
func SetSessions(n int) { sessionsActive.Set(float64(n)) }

// DatasetReloaded counts a reload attempt.
func DatasetReloaded(err error) {
	if err != nil {
		datasetReloads.WithLabelValues("error").Inc()
		return
	}
	datasetReloads.WithLabelValues("ok").Inc()
}

// Middleware times requests. Unmatched routes are labelled "unmatched" to
// keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
