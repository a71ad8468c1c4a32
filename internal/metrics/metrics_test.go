package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/tradeloop/internal/game"
)

func TestEvents_CountsRounds(t *testing.T) {
	correct := testutil.ToFloat64(roundsTotal.WithLabelValues("correct"))
	incorrect := testutil.ToFloat64(roundsTotal.WithLabelValues("incorrect"))
	loops := testutil.ToFloat64(loopsClosed)

	var l game.Listener = Events{}
	l.OnEvent(game.Event{Type: game.EventRoundResolved, Payload: game.RoundResolvedPayload{Correct: true}})
	l.OnEvent(game.Event{Type: game.EventRoundResolved, Payload: game.RoundResolvedPayload{Correct: true}})
	l.OnEvent(game.Event{Type: game.EventRoundResolved, Payload: game.RoundResolvedPayload{Correct: false}})
	l.OnEvent(game.Event{Type: game.EventLoopClosed, Payload: game.LoopClosedPayload{StreakLength: 4}})
	l.OnEvent(game.Event{Type: game.EventOptionsChanged})

	assert.Equal(t, correct+2, testutil.ToFloat64(roundsTotal.WithLabelValues("correct")))
	assert.Equal(t, incorrect+1, testutil.ToFloat64(roundsTotal.WithLabelValues("incorrect")))
	assert.Equal(t, loops+1, testutil.ToFloat64(loopsClosed))
}

func TestGaugesAndCounters(t *testing.T) {
	SetSessions(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(sessionsActive))

	before := testutil.ToFloat64(gamesStarted)
	GameStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(gamesStarted))

	ok := testutil.ToFloat64(datasetReloads.WithLabelValues("ok"))
	bad := testutil.ToFloat64(datasetReloads.WithLabelValues("error"))
	DatasetReloaded(nil)
	DatasetReloaded(errors.New("boom"))
	assert.Equal(t, ok+1, testutil.ToFloat64(datasetReloads.WithLabelValues("ok")))
	assert.Equal(t, bad+1, testutil.ToFloat64(datasetReloads.WithLabelValues("error")))
}

func TestMiddleware_LabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/game/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/game/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	n := testutil.CollectAndCount(requestDuration, "tradeloop_http_request_duration_seconds")
	assert.GreaterOrEqual(t, n, 1)
	h, err := requestDuration.GetMetricWithLabelValues(http.MethodGet, "/game/{id}", "418")
	require.NoError(t, err)
	assert.NotNil(t, h)
}
