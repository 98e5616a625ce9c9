package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dngg/dngg-frontend-go/client"
	"github.com/dngg/dngg-frontend-go/internal"
	modelwebsocket "github.com/dngg/dngg-frontend-go/model/websocket"
	"github.com/dngg/dngg-frontend-go/record"
	"github.com/dngg/dngg-frontend-go/stats"
	"github.com/dngg/dngg-frontend-go/store"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type server struct {
	srv *http.Server
	up  *websocket.Upgrader

	d      internal.Dependencies
	gw     *client.Client
	auth   *store.AuthStore
	groups *store.GroupStore
	teams  *store.TeamStore
	stats  *stats.Controller
	rec    *record.Registry
}

func NewServer(d internal.Dependencies, gw *client.Client, auth *store.AuthStore,
	groups *store.GroupStore, teams *store.TeamStore, st *stats.Controller,
	rec *record.Registry) (*server, error) {
	return &server{
		up: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Accepting all requests
			},
		},
		d:      d,
		gw:     gw,
		auth:   auth,
		groups: groups,
		teams:  teams,
		stats:  st,
		rec:    rec,
	}, nil
}

func (s *server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	gameID, err := intQuery(r, "gameId")
	if err != nil {
		http.Error(w, "gameId query parameter is required", http.StatusBadRequest)
		return
	}
	session, err := s.rec.Session(r.Context(), gameID)
	if err != nil {
		slog.Error(fmt.Sprintf("failed to open recording session for game %d : %s", gameID, err.Error()))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		slog.Error(err.Error())
		return
	}
	defer conn.Close()
	session.HandleWebsocketConnection(conn, r)

	for {
		mt, m, err := conn.ReadMessage()
		if err != nil || mt == websocket.CloseMessage {
			slog.Info(fmt.Sprintf("closing websocket connection err : %s", err))
			break
		}
		var wm modelwebsocket.Message
		if err := json.Unmarshal(m, &wm); err != nil {
			slog.Warn(fmt.Sprintf("unable to unmarshal the received message : %v", err))
			continue
		}
		if session.HandleWebsocketMessage(&wm, conn, r) {
			continue
		}
		slog.Warn("no handlers processed the websocket message")
	}
}

func spaHandler(staticPath string, indexPath string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		// Join internally call path.Clean to prevent directory traversal
		path := filepath.Join(staticPath, r.URL.Path)

		fi, err := os.Stat(path)
		if os.IsNotExist(err) || (err == nil && fi.IsDir()) {
			http.ServeFile(w, r, filepath.Join(staticPath, indexPath))
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		http.FileServer(http.Dir(staticPath)).ServeHTTP(w, r)
	}
}

func (s *server) GetHTTPServer() (*http.Server, error) {
	if s.srv == nil {
		return nil, errors.New("http server is not started yet")
	}
	return s.srv, nil
}

func (s *server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	router.HandleFunc("/api/session", s.handleSession).Methods(http.MethodGet)
	router.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/signup", s.handleSignup).Methods(http.MethodPost)
	router.HandleFunc("/api/logout", s.handleLogout).Methods(http.MethodPost)

	router.HandleFunc("/api/groups", s.handleListGroups).Methods(http.MethodGet)
	router.HandleFunc("/api/groups", s.handleCreateGroup).Methods(http.MethodPost)
	router.HandleFunc("/api/groups/selected", s.handleSelectGroup).Methods(http.MethodPut)

	router.HandleFunc("/api/logitems", s.handleListLogItems).Methods(http.MethodGet)

	router.HandleFunc("/api/players", s.handleListPlayers).Methods(http.MethodGet)
	router.HandleFunc("/api/players", s.handleCreatePlayer).Methods(http.MethodPost)
	router.HandleFunc("/api/players/{id:[0-9]+}", s.handlePlayerDetail).Methods(http.MethodGet)

	router.HandleFunc("/api/teams", s.handleListTeams).Methods(http.MethodGet)
	router.HandleFunc("/api/teams", s.handleCreateTeam).Methods(http.MethodPost)
	router.HandleFunc("/api/teams", s.handleResetTeams).Methods(http.MethodDelete)
	router.HandleFunc("/api/teams/{id}/players", s.handleAddTeamPlayers).Methods(http.MethodPost)
	router.HandleFunc("/api/teams/{id}/players/{playerId:[0-9]+}", s.handleRemoveTeamPlayer).Methods(http.MethodDelete)

	router.HandleFunc("/api/games", s.handleListGames).Methods(http.MethodGet)
	router.HandleFunc("/api/games", s.handleCreateGame).Methods(http.MethodPost)
	router.HandleFunc("/api/games/{id:[0-9]+}", s.handleUpdateGame).Methods(http.MethodPatch)

	router.HandleFunc("/api/rankings", s.handleRankings).Methods(http.MethodGet)
	router.HandleFunc("/api/daily/dates", s.handleDailyDates).Methods(http.MethodGet)
	router.HandleFunc("/api/daily", s.handleDaily).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.handleWebsocket)

	staticDir := internal.Config().Server.StaticDir
	if staticDir == "" {
		staticDir = "static"
	}
	router.PathPrefix("/").HandlerFunc(spaHandler(staticDir, "index.html"))
	return router
}

func (s *server) Start(ctx context.Context) chan error {
	serverAddr := "0.0.0.0:" + internal.Config().Server.Port
	slog.Info("starting server on " + serverAddr)
	slog.Info("handling recording websocket on path : '/ws'")
	srv := &http.Server{
		Handler: handlers.CORS(handlers.AllowedOrigins([]string{"*"}))(s.Router()),
		Addr:    serverAddr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	s.srv = srv

	errCh := make(chan error)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	return errCh
}
