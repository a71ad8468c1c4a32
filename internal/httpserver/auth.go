// internal/httpserver/auth.go
//
// Player identity and game tokens.
// Responsibilities:
//   - Anonymous player cookie (stable ID for best scores, no accounts).
//   - HS256 game tokens binding a game ID to the player who created it.
//   - Middleware that admits only the token holder to /game/{id} routes.
//
// Token sources, in order: Authorization: Bearer <token>, ?token= (browsers
// cannot set headers on WebSocket upgrades), then the game cookie.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/robalobadob/tradeloop/internal/game"
)

const (
	anonCookieName = "tradeloop_anon"
	gameCookieName = "tradeloop_game"
)

var errBadToken = errors.New("invalid token")

// gameClaims are carried in a game token.
type gameClaims struct {
	GameID   string `json:"gid"`
	PlayerID string `json:"pid"`
	jwt.RegisteredClaims
}

// ctxSessionKey is the context key for the authorised *game.Session.
type ctxSessionKey struct{}

func sessionFrom(ctx context.Context) *game.Session {
	s, _ := ctx.Value(ctxSessionKey{}).(*game.Session)
	return s
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: s.sameSite(),
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// signToken creates an HS256 token for a game, valid for TokenTTL.
func (s *Server) signToken(gameID, playerID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.opts.TokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, gameClaims{
		GameID:   gameID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString([]byte(s.opts.JWTSecret))
	return ss, exp, err
}

func (s *Server) parseToken(tok string) (*gameClaims, error) {
	claims := &gameClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, errBadToken
	}
	if claims.GameID == "" || claims.PlayerID == "" {
		return nil, errBadToken
	}
	return claims, nil
}

// setGameCookie writes the game token cookie with appropriate security attributes.
func (s *Server) setGameCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     gameCookieName,
		Value:    token,
		Path:     "/game",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: s.sameSite(),
		Expires:  exp,
	})
}

// sameSite is None in production (cross-site client, Secure cookies) and Lax otherwise.
func (s *Server) sameSite() http.SameSite {
	if s.opts.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// bearerOrCookie extracts a token from the Authorization header, the
// token query parameter or the game cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return q
	}
	if c, err := r.Cookie(gameCookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireGame enforces a valid token for the {id} in the path, loads the
// session and injects it into the request context.
func (s *Server) requireGame() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerOrCookie(r)
			if tok == "" {
				jsonError(w, http.StatusUnauthorized, "unauthorized", "missing game token")
				return
			}
			claims, err := s.parseToken(tok)
			if err != nil {
				jsonError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			id := chi.URLParam(r, "id")
			if claims.GameID != id {
				jsonError(w, http.StatusUnauthorized, "unauthorized", "token is for another game")
				return
			}
			sess, err := s.sessions.Get(r.Context(), id)
			if err != nil {
				writeErr(w, err)
				return
			}
			if sess.PlayerID != claims.PlayerID {
				jsonError(w, http.StatusUnauthorized, "unauthorized", "token is for another player")
				return
			}
			ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
