// Package handlers serves the room server's HTTP API: room listing, health,
// diagnostics, and the client update endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomsync/internal/config"
	"github.com/cory-johannsen/roomsync/internal/game/session"
)

// RoomReader exposes read-only room state.
type RoomReader interface {
	ListRooms() []session.RoomSummary
	Occupancy() []session.RoomOccupancy
}

// ConnectionCounter reports live websocket connections.
type ConnectionCounter interface {
	ConnectionCount() int
}

// API holds the dependencies of the HTTP handlers.
type API struct {
	rooms  RoomReader
	conns  ConnectionCounter
	update config.UpdateConfig
	clock  session.Clock
	logger *zap.Logger
}

// NewAPI creates an API.
//
// Precondition: rooms, conns, clock, and logger must be non-nil.
func NewAPI(rooms RoomReader, conns ConnectionCounter, update config.UpdateConfig, clock session.Clock, logger *zap.Logger) *API {
	return &API{
		rooms:  rooms,
		conns:  conns,
		update: update,
		clock:  clock,
		logger: logger,
	}
}

// NewRouter mounts the API and the websocket endpoint behind CORS, request IDs,
// panic recovery, and request logging.
//
// Precondition: socketPath must start with "/".
func NewRouter(cfg config.HTTPConfig, api *API, socketPath string, socket http.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/servers", api.handleServers)
		r.Get("/health", api.handleHealth)
		r.Get("/debug", api.handleDebug)
		r.Get("/version", api.handleVersion)
		r.Get("/download", api.handleDownload)
	})
	r.Handle(socketPath, socket)

	return r
}

func (a *API) handleServers(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.rooms.ListRooms())
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: a.clock.Now().UTC().Format(time.RFC3339),
	})
}

type debugRoom struct {
	PlayerCount int                 `json:"playerCount"`
	Players     []session.PlayerRef `json:"players"`
}

type debugResponse struct {
	TotalConnections int                  `json:"totalConnections"`
	Servers          map[string]debugRoom `json:"servers"`
}

func (a *API) handleDebug(w http.ResponseWriter, _ *http.Request) {
	occ := a.rooms.Occupancy()
	resp := debugResponse{
		TotalConnections: a.conns.ConnectionCount(),
		Servers:          make(map[string]debugRoom, len(occ)),
	}
	for _, o := range occ {
		resp.Servers[o.ID] = debugRoom{PlayerCount: o.PlayerCount, Players: o.Players}
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("writing response", zap.Error(err))
	}
}

// requestLogger logs one line per request at Debug, or Warn for server errors.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Duration("elapsed", time.Since(start)),
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Warn("http request", fields...)
				return
			}
			logger.Debug("http request", fields...)
		})
	}
}
