// internal/httpserver/routes_game.go
//
// HTTP routes for playing a game.
//   - POST /game/new                  → start a game (optionally today's daily game)
//   - GET  /game/{id}                 → current state
//   - POST /game/{id}/choice          → tag an option as first/second choice
//   - POST /game/{id}/reset-choices   → clear pending choices
//   - POST /game/{id}/submit          → judge the guess; records best score on loop closure
//   - POST /game/{id}/advance         → start a new streak after an incorrect guess
//   - POST /game/{id}/reset           → new game (score 0)
//   - GET  /game/{id}/events          → WebSocket stream of engine events
//
// Everything under /game/{id} needs the token handed out by /game/new.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tradeloop/internal/countries"
	"github.com/robalobadob/tradeloop/internal/daily"
	"github.com/robalobadob/tradeloop/internal/game"
	"github.com/robalobadob/tradeloop/internal/metrics"
	"github.com/robalobadob/tradeloop/internal/trade"
)

// mountGame registers /game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Route("/game", func(r chi.Router) {
		r.Post("/new", s.handleNewGame)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.requireGame())
			r.Get("/", s.handleState)
			r.Post("/choice", s.handleChoice)
			r.Post("/reset-choices", s.simpleAction((*game.Engine).ResetChoices))
			r.Post("/submit", s.handleSubmit)
			r.Post("/advance", s.simpleAction((*game.Engine).AdvanceAfterIncorrect))
			r.Post("/reset", s.simpleAction((*game.Engine).ResetGame))
			r.Get("/events", s.handleEvents)
		})
	})
}

// -----------------------------------------------------------------------------
// view

// optionView is one offered partner with presentation extras.
type optionView struct {
	Name    string `json:"name"`
	ISOCode string `json:"isoCode"`
	Flag    string `json:"flag"`
}

// stateView is a Snapshot plus flags and icons the client would otherwise
// have to derive itself.
type stateView struct {
	game.Snapshot
	CurrentFlag   string            `json:"currentFlag"`
	Coordinates   trade.Coordinates `json:"coordinates"`
	OptionDetails []optionView      `json:"optionDetails"`
	Icons         map[string]string `json:"icons,omitempty"` // product -> emoji, for edges
}

// viewOf builds a stateView. Must be called inside Session.Do.
func viewOf(e *game.Engine) stateView {
	v := stateView{Snapshot: e.Snapshot(), OptionDetails: []optionView{}}
	if c := e.Current(); c != nil {
		v.CurrentFlag = countries.FlagURL(c.ISOCode)
		v.Coordinates = c.Coordinates
	}
	for _, name := range v.Options {
		ov := optionView{Name: name}
		if c, err := e.Graph().Lookup(name); err == nil {
			ov.ISOCode = c.ISOCode
			ov.Flag = countries.FlagURL(c.ISOCode)
		}
		v.OptionDetails = append(v.OptionDetails, ov)
	}
	for _, edge := range v.Edges {
		if v.Icons == nil {
			v.Icons = make(map[string]string)
		}
		v.Icons[edge.Product] = countries.ProductIcon(edge.Product)
	}
	return v
}

// -----------------------------------------------------------------------------
// /game/new

type newGameReq struct {
	Daily bool `json:"daily"`
}

type newGameRes struct {
	GameID    string    `json:"gameId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Daily     string    `json:"daily,omitempty"` // date key for daily games
	State     stateView `json:"state"`
}

// handleNewGame creates a session over the current dataset and returns
// its ID and token. An empty body starts a regular game.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	playerID := s.ensureAnonID(w, r)
	id := uuid.NewString()

	opts := []game.Option{
		game.WithRules(s.opts.Rules),
		game.WithListener(s.hub.Listener(id)),
		game.WithListener(metrics.Events{}),
	}
	var dateKey string
	if req.Daily {
		now := time.Now()
		dateKey = daily.DateKey(now)
		opts = append(opts, game.WithRand(game.NewSeededRand(daily.Seed(now, s.opts.DailySalt))))
	}

	e, err := game.NewEngine(s.catalog.Graph(), opts...)
	if err != nil {
		writeErr(w, err)
		return
	}
	sess := game.NewSession(id, playerID, e)
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		writeErr(w, err)
		return
	}
	metrics.GameStarted()
	metrics.SetSessions(s.sessions.Len())

	tok, exp, err := s.signToken(id, playerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.setGameCookie(w, tok, exp)

	var view stateView
	_ = sess.Do(func(e *game.Engine) error { view = viewOf(e); return nil })
	log.Info().Str("gameId", id).Str("player", playerID).Bool("daily", req.Daily).Msg("game started")

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(newGameRes{GameID: id, Token: tok, ExpiresAt: exp, Daily: dateKey, State: view})
}

// -----------------------------------------------------------------------------
// /game/{id}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var view stateView
	_ = sess.Do(func(e *game.Engine) error { view = viewOf(e); return nil })
	_ = json.NewEncoder(w).Encode(view)
}

type choiceReq struct {
	Index *int `json:"index"`
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		jsonError(w, http.StatusBadRequest, "bad_request", `expected {"index": n}`)
		return
	}
	sess := sessionFrom(r.Context())
	var view stateView
	err := sess.Do(func(e *game.Engine) error {
		if err := e.RecordChoice(*req.Index); err != nil {
			return err
		}
		view = viewOf(e)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(view)
}

// simpleAction wraps an engine method that takes no input and returns the new state.
func (s *Server) simpleAction(action func(*game.Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		var view stateView
		err := sess.Do(func(e *game.Engine) error {
			if err := action(e); err != nil {
				return err
			}
			view = viewOf(e)
			return nil
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(view)
	}
}

type submitRes struct {
	Result  game.RoundResult `json:"result"`
	State   stateView        `json:"state"`
	Best    *float64         `json:"best,omitempty"` // set when a loop closed
	NewBest bool             `json:"newBest"`
}

// handleSubmit judges the pending guess. On loop closure the final score is
// offered to the best-score store.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var res submitRes
	err := sess.Do(func(e *game.Engine) error {
		rr, err := e.SubmitGuess()
		if err != nil {
			return err
		}
		res.Result = rr
		res.State = viewOf(e)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	if res.Result.LoopClosed {
		best, improved, err := s.best.Record(r.Context(), sess.PlayerID, res.Result.Score)
		if err != nil {
			// the loop still closed; report it without a best
			log.Error().Err(err).Str("gameId", sess.ID).Msg("record best score")
		} else {
			res.Best = &best
			res.NewBest = improved
			log.Info().Str("gameId", sess.ID).Float64("score", res.Result.Score).
				Bool("newBest", improved).Msg("loop closed")
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleEvents upgrades to a WebSocket that receives this game's events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.serveWs(w, r, sessionFrom(r.Context()).ID)
}
