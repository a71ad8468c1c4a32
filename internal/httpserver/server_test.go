package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/tradeloop/internal/bestscore"
	"github.com/robalobadob/tradeloop/internal/countries"
	"github.com/robalobadob/tradeloop/internal/daily"
	"github.com/robalobadob/tradeloop/internal/game"
	"github.com/robalobadob/tradeloop/internal/store"
	"github.com/robalobadob/tradeloop/internal/trade"
)

// hubGraph is a complete graph over Hub and A..E. Hub exports the most, so
// it is the only start country under hubRules, and everyone exports far
// more to Hub than to anyone else.
func hubGraph(t *testing.T) *trade.Graph {
	t.Helper()
	names := []string{"Hub", "A", "B", "C", "D", "E"}
	var cs []trade.Country
	for i, from := range names {
		c := trade.Country{
			Name:    from,
			ISOCode: strings.ToUpper(from[:1]) + "X",
			Exports: map[string]trade.TradeLink{},
		}
		for j, to := range names {
			if i == j {
				continue
			}
			v := float64(100*(j+1) + i)
			switch {
			case from == "Hub":
				v = 20000 + float64(j)
			case to == "Hub":
				v = 10000
			}
			c.Exports[to] = trade.TradeLink{TotalExportValue: v, TopProductValue: v / 2, TopProduct: "Machinery"}
		}
		cs = append(cs, c)
	}
	g, err := trade.NewGraph(cs)
	require.NoError(t, err)
	return g
}

func hubRules() game.Rules {
	r := game.DefaultRules()
	r.StartPoolFraction = 0.01
	r.MinStartPool = 1
	return r
}

type harness struct {
	t        *testing.T
	srv      *Server
	graph    *trade.Graph
	sessions store.Store
	best     *bestscore.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	g := hubGraph(t)
	hub := NewHub("")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	h := &harness{t: t, graph: g, sessions: store.NewMemoryStore(), best: bestscore.NewMemory()}
	h.srv = New(Options{
		JWTSecret: "test-secret",
		Rules:     hubRules(),
		DailySalt: "salt",
	}, countries.NewStaticCatalog(g), h.sessions, h.best, hub)
	return h
}

func (h *harness) do(method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (h *harness) newGame(body any, cookies ...*http.Cookie) (newGameRes, []*http.Cookie) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/game/new", body, "", cookies...)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	cs := rec.Result().Cookies()
	return decode[newGameRes](h.t, rec), cs
}

func cookieNamed(cs []*http.Cookie, name string) *http.Cookie {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// value is what view.Current exports to name.
func (h *harness) value(view stateView, name string) float64 {
	cur, err := h.graph.Lookup(view.Current)
	require.NoError(h.t, err)
	return trade.ComparableValue(cur.Exports[name])
}

// byValue returns option indices, strongest export first.
func (h *harness) byValue(view stateView) []int {
	idx := make([]int, len(view.Options))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return h.value(view, view.Options[idx[a]]) > h.value(view, view.Options[idx[b]])
	})
	return idx
}

// correctPair heads for the streak start when it is offered.
func (h *harness) correctPair(view stateView) (int, int) {
	order := h.byValue(view)
	for i, name := range view.Options {
		if name == view.StreakStart {
			other := order[len(order)-1]
			if other == i {
				other = order[0]
			}
			return i, other
		}
	}
	return order[0], order[len(order)-1]
}

func (h *harness) guess(id, tok string, first, second int) submitRes {
	h.t.Helper()
	for _, i := range []int{first, second} {
		rec := h.do(http.MethodPost, "/game/"+id+"/choice", map[string]int{"index": i}, tok)
		require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := h.do(http.MethodPost, "/game/"+id+"/submit", nil, tok)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[submitRes](h.t, rec)
}

func TestNewGame(t *testing.T) {
	h := newHarness(t)
	res, cookies := h.newGame(nil)

	assert.NotEmpty(t, res.GameID)
	assert.NotEmpty(t, res.Token)
	assert.Empty(t, res.Daily)
	assert.Equal(t, game.StateAwaitingFirstChoice, res.State.State)
	assert.Equal(t, "Hub", res.State.Current)
	assert.Equal(t, "https://flagcdn.com/w320/hx.png", res.State.CurrentFlag)
	assert.Len(t, res.State.Options, 3)
	require.Len(t, res.State.OptionDetails, 3)
	for i, o := range res.State.OptionDetails {
		assert.Equal(t, res.State.Options[i], o.Name)
		assert.NotEmpty(t, o.Flag)
	}
	assert.NotNil(t, cookieNamed(cookies, anonCookieName))
	gc := cookieNamed(cookies, gameCookieName)
	require.NotNil(t, gc)
	assert.Equal(t, res.Token, gc.Value)
	assert.Equal(t, 1, h.sessions.Len())

	rec := h.do(http.MethodGet, "/game/"+res.GameID, nil, res.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[stateView](t, rec)
	assert.Equal(t, res.State.Options, st.Options)
}

func TestNewGame_BadBody(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/game/new", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGame_LoopClosesAndRecordsBest(t *testing.T) {
	h := newHarness(t)
	res, cookies := h.newGame(nil)
	anon := cookieNamed(cookies, anonCookieName)
	require.NotNil(t, anon)

	view := res.State
	var out submitRes
	for round := 0; round < 4; round++ {
		first, second := h.correctPair(view)
		out = h.guess(res.GameID, res.Token, first, second)
		require.True(t, out.Result.Correct, "round %d", round)
		if round < 3 {
			require.False(t, out.Result.LoopClosed, "round %d", round)
			assert.Nil(t, out.Best)
		}
		view = out.State
	}

	assert.True(t, out.Result.LoopClosed)
	assert.Equal(t, 460.0, out.Result.Score)
	assert.Equal(t, 4, out.Result.Streak)
	assert.Equal(t, game.StateLoopClosed, out.State.State)
	require.NotNil(t, out.Best)
	assert.Equal(t, 460.0, *out.Best)
	assert.True(t, out.NewBest)
	assert.Len(t, out.State.Edges, 4)
	assert.Equal(t, "🔧", out.State.Icons["Machinery"])

	rec := h.do(http.MethodGet, "/best", nil, "", anon)
	require.Equal(t, http.StatusOK, rec.Code)
	best := decode[bestRes](t, rec)
	assert.Equal(t, anon.Value, best.PlayerID)
	assert.Equal(t, 460.0, best.Best)

	rec = h.do(http.MethodGet, "/best/top?limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	top := decode[topRes](t, rec)
	require.Len(t, top.Top, 1)
	assert.Equal(t, anon.Value, top.Top[0].PlayerID)

	// Nothing left to submit until the game is reset.
	rec = h.do(http.MethodPost, "/game/"+res.GameID+"/submit", nil, res.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/game/"+res.GameID+"/reset", nil, res.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[stateView](t, rec)
	assert.Equal(t, game.StateAwaitingFirstChoice, st.State)
	assert.Zero(t, st.Score)
	assert.Empty(t, st.Edges)
}

func TestGame_IncorrectThenAdvance(t *testing.T) {
	h := newHarness(t)
	res, _ := h.newGame(nil)

	order := h.byValue(res.State)
	out := h.guess(res.GameID, res.Token, order[len(order)-1], order[0])
	assert.False(t, out.Result.Correct)
	assert.Zero(t, out.Result.Score)
	assert.Equal(t, game.StateResolvedIncorrect, out.State.State)
	assert.Empty(t, out.State.Options)

	rec := h.do(http.MethodPost, "/game/"+res.GameID+"/advance", nil, res.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[stateView](t, rec)
	assert.Equal(t, game.StateAwaitingFirstChoice, st.State)
	assert.Equal(t, "Hub", st.Current)

	rec = h.do(http.MethodPost, "/game/"+res.GameID+"/advance", nil, res.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGame_Choices(t *testing.T) {
	h := newHarness(t)
	res, _ := h.newGame(nil)
	base := "/game/" + res.GameID

	rec := h.do(http.MethodPost, base+"/choice", map[string]string{"index": "x"}, res.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPost, base+"/choice", map[string]int{}, res.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPost, base+"/choice", map[string]int{"index": 7}, res.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, base+"/choice", map[string]int{"index": 1}, res.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[stateView](t, rec)
	assert.Equal(t, game.StateAwaitingSecondChoice, st.State)
	assert.Equal(t, res.State.Options[1], st.FirstChoice)

	rec = h.do(http.MethodPost, base+"/choice", map[string]int{"index": 1}, res.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, base+"/submit", nil, res.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, base+"/reset-choices", nil, res.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[stateView](t, rec)
	assert.Equal(t, game.StateAwaitingFirstChoice, st.State)
	assert.Empty(t, st.FirstChoice)
}

func TestGame_Auth(t *testing.T) {
	h := newHarness(t)
	a, aCookies := h.newGame(nil)
	b, _ := h.newGame(nil)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"other game", b.Token, http.StatusUnauthorized},
		{"own game", a.Token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(http.MethodGet, "/game/"+a.GameID, nil, tc.token)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	t.Run("cookie", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/game/"+a.GameID, nil, "", cookieNamed(aCookies, gameCookieName))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("query", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/game/"+a.GameID+"?token="+a.Token, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := &Server{opts: Options{JWTSecret: "other", TokenTTL: time.Hour}}
		tok, _, err := other.signToken(a.GameID, "someone")
		require.NoError(t, err)
		rec := h.do(http.MethodGet, "/game/"+a.GameID, nil, tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("evicted", func(t *testing.T) {
		require.NoError(t, h.sessions.Delete(context.Background(), b.GameID))
		rec := h.do(http.MethodGet, "/game/"+b.GameID, nil, b.Token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNewGame_DailyIsDeterministic(t *testing.T) {
	h := newHarness(t)
	one, _ := h.newGame(map[string]bool{"daily": true})
	two, _ := h.newGame(map[string]bool{"daily": true})

	assert.Equal(t, daily.DateKey(time.Now()), one.Daily)
	assert.NotEqual(t, one.GameID, two.GameID)
	assert.Equal(t, one.State.Options, two.State.Options)
}

func TestPublicRoutes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, 6.0, health["countries"])

	rec = h.do(http.MethodGet, "/countries", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cs := decode[countriesRes](t, rec)
	require.Len(t, cs.Countries, 6)
	assert.Equal(t, "A", cs.Countries[0].Name)
	assert.Equal(t, 5, cs.Countries[0].Partners)
	assert.Equal(t, int64(1), cs.Generation)

	rec = h.do(http.MethodGet, "/best/top", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"top":[]}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/best/top?limit=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")

	rec = h.do(http.MethodOptions, "/game/new", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = h.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tradeloop_games_started_total")
}

func TestEvents_WebSocket(t *testing.T) {
	h := newHarness(t)
	res, _ := h.newGame(nil)

	ts := httptest.NewServer(h.srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + res.GameID + "/events?token=" + res.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration is asynchronous; keep resetting until an event arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				req, _ := http.NewRequest(http.MethodPost, ts.URL+"/game/"+res.GameID+"/reset", nil)
				req.Header.Set("Authorization", "Bearer "+res.Token)
				if resp, err := http.DefaultClient.Do(req); err == nil {
					resp.Body.Close()
				}
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Type   string `json:"type"`
		Sender string `json:"sender"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, res.GameID, msg.Sender)
	assert.Contains(t, []string{string(game.EventAllLinksCleared), string(game.EventOptionsChanged)}, msg.Type)
}

func TestEvents_RequiresToken(t *testing.T) {
	h := newHarness(t)
	res, _ := h.newGame(nil)
	ts := httptest.NewServer(h.srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + res.GameID + "/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJanitor_ClosesEvictedGames(t *testing.T) {
	h := newHarness(t)
	res, _ := h.newGame(nil)

	j := h.srv.Janitor(time.Minute)
	var evicted []string
	inner := j.OnEvict
	j.OnEvict = func(ids []string) { evicted = append(evicted, ids...); inner(ids) }

	ids, err := h.sessions.Sweep(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	j.OnEvict(ids)
	assert.Equal(t, []string{res.GameID}, evicted)
	assert.Zero(t, h.sessions.Len())
}
