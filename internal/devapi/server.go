package devapi

import (
	"encoding/json"
	"net/http"

	"github.com/okian/nbalake/internal/adapters/source"
	"github.com/okian/nbalake/pkg/logger"
)

// PlayersPath is the path of the player endpoint on the real API.
const PlayersPath = "/v3/nba/scores/json/Players"

// apiError is the error body shape of the real API.
type apiError struct {
	HTTPStatusCode int    `json:"HttpStatusCode"`
	Code           int    `json:"Code"`
	Description    string `json:"Description"`
}

// Server serves a fixed player list behind a subscription key.
type Server struct {
	apiKey     string
	players    []Player
	failStatus int
	logger     logger.Logger
	metrics    *serverMetrics
}

// Option configures a Server.
type Option func(*Server)

// WithPlayers sets the served players.
func WithPlayers(p []Player) Option {
	return func(s *Server) {
		if p != nil {
			s.players = p
		}
	}
}

// WithFailStatus makes every authorized request fail with status.
func WithFailStatus(status int) Option {
	return func(s *Server) {
		s.failStatus = status
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a Server that accepts apiKey. An empty apiKey accepts
// any request.
func NewServer(apiKey string, opts ...Option) *Server {
	s := &Server{apiKey: apiKey, players: []Player{}, metrics: newServerMetrics()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("devapi")
	}
	return s
}

// Register mounts the player, health and metrics endpoints on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+PlayersPath, s.metrics.instrument(PlayersPath, s.handlePlayers))
	mux.HandleFunc("GET "+HealthPath, handleHealth)
	mux.Handle("GET "+MetricsPath, s.metrics.handler())
}

// Handler returns a mux with the endpoints registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.apiKey != "" && r.Header.Get(source.SubscriptionKeyHeader) != s.apiKey {
		s.logger.Warn(ctx, "rejected request without valid subscription key", logger.String("remote", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, apiError{
			HTTPStatusCode: http.StatusUnauthorized,
			Code:           http.StatusUnauthorized,
			Description:    "Access denied due to missing or invalid subscription key.",
		})
		return
	}

	if s.failStatus != 0 {
		writeJSON(w, s.failStatus, apiError{
			HTTPStatusCode: s.failStatus,
			Code:           s.failStatus,
			Description:    http.StatusText(s.failStatus),
		})
		return
	}

	s.logger.Info(ctx, "serving players", logger.Int("count", len(s.players)))
	writeJSON(w, http.StatusOK, s.players)
}

// handleHealth reports liveness only.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
