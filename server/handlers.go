package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dngg/dngg-frontend-go/client"
	"github.com/dngg/dngg-frontend-go/model"
	"github.com/dngg/dngg-frontend-go/model/dnapi"
	"github.com/dngg/dngg-frontend-go/store"
	"github.com/gorilla/mux"
	"gorm.io/gorm/clause"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("failed to encode response : %s", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeBackendError maps a gateway failure onto the response: backend status
// codes pass through, transport failures become 502.
func writeBackendError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Body)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func intQuery(r *http.Request, key string) (int, error) {
	return strconv.Atoi(r.URL.Query().Get(key))
}

func intVar(r *http.Request, key string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[key])
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// selectedGroup resolves the group a request works in: an explicit groupId
// query wins, otherwise the persisted selection.
func (s *server) selectedGroup(r *http.Request) (int, error) {
	if id, err := intQuery(r, "groupId"); err == nil {
		return id, nil
	}
	if id := s.groups.Selected(); id != 0 {
		return id, nil
	}
	return 0, errors.New("no group selected")
}

func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Authenticated bool   `json:"authenticated"`
		Email         string `json:"email,omitempty"`
		UserID        string `json:"userId,omitempty"`
		SelectedGroup int    `json:"selectedGroup,omitempty"`
	}
	res := response{SelectedGroup: s.groups.Selected()}
	if session := s.auth.Session(); session != nil && s.auth.Token() != "" {
		res.Authenticated = true
		res.Email = session.Email
		res.UserID = session.UserID
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dnapi.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.gw.Login(r.Context(), req)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if err := s.auth.SetToken(r.Context(), res.AccessToken); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist the session")
		return
	}
	writeJSON(w, http.StatusOK, res.User)
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	var req request
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Mismatch is caught before the backend ever sees the request.
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}
	if err := s.gw.Signup(r.Context(), dnapi.SignupRequest{Email: req.Email, Password: req.Password}); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// cacheGroups upserts the fetched group catalog into the local cache.
func (s *server) cacheGroups(ctx context.Context, groups []dnapi.Group) {
	if len(groups) == 0 {
		return
	}
	cached := make([]model.CachedGroup, 0, len(groups))
	for _, g := range groups {
		cached = append(cached, model.CachedGroup{ID: g.ID, Name: g.Name, Description: g.Description})
	}
	if err := s.d.Database(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&cached).Error; err != nil {
		slog.Warn("failed to update cached groups : " + err.Error())
	}
}

func (s *server) cachedGroups(ctx context.Context) []dnapi.Group {
	var cached []model.CachedGroup
	if err := s.d.Database(ctx).Find(&cached).Error; err != nil {
		slog.Warn("failed to read cached groups : " + err.Error())
		return nil
	}
	groups := make([]dnapi.Group, 0, len(cached))
	for _, g := range cached {
		groups = append(groups, dnapi.Group{ID: g.ID, Name: g.Name, Description: g.Description})
	}
	return groups
}

func (s *server) cacheLogItems(ctx context.Context, items []dnapi.LogItem) {
	if len(items) == 0 {
		return
	}
	cached := make([]model.CachedLogItem, 0, len(items))
	for _, it := range items {
		cached = append(cached, model.CachedLogItem{ID: it.ID, GroupID: it.GroupID, Name: it.Name, Value: it.Value})
	}
	if err := s.d.Database(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&cached).Error; err != nil {
		slog.Warn("failed to update cached log items : " + err.Error())
	}
}

func (s *server) cachedLogItems(ctx context.Context, groupID int) []dnapi.LogItem {
	var cached []model.CachedLogItem
	if err := s.d.Database(ctx).Find(&cached, "group_id = ?", groupID).Error; err != nil {
		slog.Warn("failed to read cached log items : " + err.Error())
		return nil
	}
	items := make([]dnapi.LogItem, 0, len(cached))
	for _, it := range cached {
		items = append(items, dnapi.LogItem{ID: it.ID, GroupID: it.GroupID, Name: it.Name, Value: it.Value})
	}
	return items
}

func (s *server) handleListLogItems(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.gw.LogItems(r.Context(), groupID)
	if err != nil {
		// The cached catalog keeps the action palette usable while the
		// backend is down.
		slog.Warn("falling back to cached log items : " + err.Error())
		writeJSON(w, http.StatusOK, s.cachedLogItems(r.Context(), groupID))
		return
	}
	s.cacheLogItems(r.Context(), items)
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Groups   []dnapi.Group `json:"groups"`
		Selected int           `json:"selected"`
	}
	groups, err := s.gw.Groups(r.Context())
	if err != nil {
		// The cached catalog keeps the group switcher usable while the
		// backend is down; the stored selection is left untouched.
		slog.Warn("falling back to cached groups : " + err.Error())
		writeJSON(w, http.StatusOK, response{Groups: s.cachedGroups(r.Context()), Selected: s.groups.Selected()})
		return
	}
	s.cacheGroups(r.Context(), groups)
	selected, err := s.groups.Validate(r.Context(), groups)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response{Groups: groups, Selected: selected})
}

func (s *server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req dnapi.CreateGroupRequest
	if err := decode(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "group name is required")
		return
	}
	group, err := s.gw.CreateGroup(r.Context(), req)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (s *server) handleSelectGroup(w http.ResponseWriter, r *http.Request) {
	type request struct {
		GroupID int `json:"groupId"`
	}
	var req request
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.groups.Select(r.Context(), req.GroupID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"selected": req.GroupID})
}

func (s *server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	players, err := s.gw.Players(r.Context(), groupID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name       string `json:"name"`
		Backnumber string `json:"backnumber"`
	}
	var req request
	if err := decode(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "player name is required")
		return
	}
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	number, err := strconv.Atoi(req.Backnumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "backnumber must be numeric")
		return
	}
	player, err := s.gw.CreatePlayer(r.Context(), dnapi.CreatePlayerRequest{
		GroupID: groupID,
		Name:    req.Name,
		Number:  number,
	})
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (s *server) handlePlayerDetail(w http.ResponseWriter, r *http.Request) {
	playerID, err := intVar(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	detail, err := s.stats.PlayerDetail(r.Context(), playerID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	teams, err := s.teams.Teams(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type response struct {
		Teams            []model.LocalTeam `json:"teams"`
		AvailablePlayers []dnapi.Player    `json:"availablePlayers"`
	}
	res := response{Teams: teams, AvailablePlayers: make([]dnapi.Player, 0)}
	players, err := s.gw.Players(r.Context(), groupID)
	if err != nil {
		// Team composition is local; the screen still works without the
		// backend player list.
		slog.Warn("failed to fetch players for team screen : " + err.Error())
	} else {
		res.AvailablePlayers = store.AvailablePlayers(players, teams)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name string `json:"name"`
	}
	var req request
	if err := decode(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "team name is required")
		return
	}
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	team, err := s.teams.CreateTeam(r.Context(), groupID, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *server) handleResetTeams(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.teams.Reset(r.Context(), groupID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) handleAddTeamPlayers(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["id"]
	type request struct {
		PlayerIDs []int `json:"playerIds"`
	}
	var req request
	if err := decode(r, &req); err != nil || len(req.PlayerIDs) == 0 {
		writeError(w, http.StatusBadRequest, "playerIds are required")
		return
	}
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	players, err := s.gw.Players(r.Context(), groupID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	wanted := make(map[int]struct{}, len(req.PlayerIDs))
	for _, id := range req.PlayerIDs {
		wanted[id] = struct{}{}
	}
	selected := make([]dnapi.Player, 0, len(req.PlayerIDs))
	for _, p := range players {
		if _, ok := wanted[p.ID]; ok {
			selected = append(selected, p)
		}
	}
	if len(selected) != len(req.PlayerIDs) {
		writeError(w, http.StatusBadRequest, "some players do not exist in this group")
		return
	}
	if err := s.teams.AddPlayers(r.Context(), teamID, selected); err != nil {
		if errors.Is(err, store.ErrPlayerAlreadyAssigned) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) handleRemoveTeamPlayer(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["id"]
	playerID, err := intVar(r, "playerId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	if err := s.teams.RemovePlayer(r.Context(), teamID, playerID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) handleListGames(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	games, err := s.gw.Games(r.Context(), groupID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name       string `json:"name"`
		HomeTeamID string `json:"homeTeamId"`
		AwayTeamID string `json:"awayTeamId"`
	}
	var req request
	if err := decode(r, &req); err != nil || req.Name == "" || req.HomeTeamID == "" || req.AwayTeamID == "" {
		writeError(w, http.StatusBadRequest, "name, homeTeamId and awayTeamId are required")
		return
	}
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	teams, err := s.teams.Teams(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	roster := func(teamID string) ([]dnapi.InGamePlayer, bool) {
		for _, t := range teams {
			if t.ID != teamID {
				continue
			}
			players := make([]dnapi.InGamePlayer, 0, len(t.Players))
			for _, p := range t.Players {
				players = append(players, dnapi.InGamePlayer{
					ID:         p.PlayerID,
					Name:       p.Name,
					Backnumber: p.Backnumber,
				})
			}
			return players, true
		}
		return nil, false
	}
	teamA, okA := roster(req.HomeTeamID)
	teamB, okB := roster(req.AwayTeamID)
	if !okA || !okB {
		writeError(w, http.StatusBadRequest, "unknown local team id")
		return
	}
	game, err := s.gw.CreateGame(r.Context(), dnapi.CreateGameRequest{
		GroupID: groupID,
		Name:    req.Name,
		Teams:   dnapi.GameTeams{TeamA: teamA, TeamB: teamB},
		Status:  dnapi.GameReady,
	})
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (s *server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := intVar(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	type request struct {
		Status string `json:"status"`
	}
	var req request
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := dnapi.GameStatusFromString(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.gw.UpdateGame(r.Context(), gameID, dnapi.UpdateGameRequest{Status: status})
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if status != dnapi.GameInProgress {
		s.rec.Drop(gameID)
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *server) handleRankings(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	byAverage := r.URL.Query().Get("tab") == "average"
	rankings, err := s.stats.Rankings(r.Context(), groupID, byAverage)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankings)
}

func (s *server) handleDailyDates(w http.ResponseWriter, r *http.Request) {
	groupID, err := s.selectedGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dates, err := s.stats.DailyDates(r.Context(), groupID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

func (s *server) handleDaily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}
	recs, err := s.stats.Daily(r.Context(), date)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
