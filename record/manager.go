package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dngg/dngg-frontend-go/model/dnapi"
	modelwebsocket "github.com/dngg/dngg-frontend-go/model/websocket"
	recordmodel "github.com/dngg/dngg-frontend-go/record/model"
	"github.com/dngg/dngg-frontend-go/stats"
	"github.com/gorilla/websocket"
)

// Gateway is the slice of the backend client the recording session needs.
type Gateway interface {
	Game(ctx context.Context, id int) (dnapi.Game, error)
	LogItems(ctx context.Context, groupID int) ([]dnapi.LogItem, error)
	CreateLog(ctx context.Context, req dnapi.CreateLogRequest) (dnapi.Log, error)
	UndoLog(ctx context.Context, gameID int) error
	RedoLog(ctx context.Context, gameID int) error
}

// Manager runs one live recording session: it owns the selection state
// machine for a single game and relays record/undo/redo to the backend log.
type Manager interface {
	Start(ctx context.Context) error
	GameID() int
	HandleWebsocketMessage(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) bool
	HandleWebsocketConnection(conn *websocket.Conn, r *http.Request)
}

type manager struct {
	gw Gateway

	connsMu sync.RWMutex
	conns   []*websocket.Conn

	gsMu sync.RWMutex
	gs   *recordmodel.SessionState
}

var _ Manager = (*manager)(nil)

func NewManager(gw Gateway, gameID int) Manager {
	gs := recordmodel.NewSessionState(gameID)
	return &manager{
		gw: gw,
		gs: &gs,
	}
}

func (m *manager) GameID() int {
	m.gsMu.RLock()
	defer m.gsMu.RUnlock()
	return m.gs.GameID
}

// Start performs the initial fetch of the game and its action catalog. The
// session is unusable until this succeeds.
func (m *manager) Start(ctx context.Context) error {
	m.gsMu.Lock()
	defer m.gsMu.Unlock()
	return m.refetchLocked(ctx)
}

// refetchLocked pulls the authoritative game state and recomputes the derived
// scores from the refreshed log list. Callers hold gsMu.
func (m *manager) refetchLocked(ctx context.Context) error {
	game, err := m.gw.Game(ctx, m.gs.GameID)
	if err != nil {
		return err
	}
	items, err := m.gw.LogItems(ctx, game.GroupID)
	if err != nil {
		return err
	}
	m.gs.Game = &game
	m.gs.LogItems = items
	m.gs.HomeScore, m.gs.AwayScore = stats.Scores(&game, items)
	m.gs.CanUndo = len(game.Logs) > 0
	m.gs.CanRedo = m.gs.RedoDepth > 0
	return nil
}

// HandleWebsocketConnection implements Manager.
func (m *manager) HandleWebsocketConnection(conn *websocket.Conn, r *http.Request) {
	slog.Info("[HandleWebsocketConnection] - handling websocket connection")
	m.gsMu.RLock()
	defer m.gsMu.RUnlock()
	sgs, err := json.Marshal(*m.gs)
	if err != nil {
		slog.Error(fmt.Sprintf("failed to serialize session state : %s", err.Error()))
		return
	}
	wm := modelwebsocket.Message{
		Action:  modelwebsocket.UpdateState,
		Content: string(sgs),
	}
	m.connsMu.Lock()
	defer m.connsMu.Unlock()
	m.conns = append(m.conns, conn)
	slog.Info("[HandleWebsocketConnection] - sending session state to the new connection")
	if conn != nil {
		if err := conn.WriteJSON(wm); err != nil {
			slog.Error(err.Error())
		}
	}
}

func (m *manager) broadcast(wm interface{}, sender *websocket.Conn) error {
	m.connsMu.RLock()
	defer m.connsMu.RUnlock()
	var errs []error
	for _, c := range m.conns {
		if c == sender || c == nil {
			continue
		}
		if err := c.WriteJSON(wm); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// broadcastStateLocked pushes the current state to every connection. Callers
// hold gsMu (read or write).
func (m *manager) broadcastStateLocked() {
	sgs, err := json.Marshal(*m.gs)
	if err != nil {
		slog.Error(fmt.Sprintf("failed to serialize session state : %s", err.Error()))
		return
	}
	wm := modelwebsocket.Message{
		Action:  modelwebsocket.UpdateState,
		Content: string(sgs),
	}
	m.broadcast(wm, nil)
}

func (m *manager) sendError(conn *websocket.Conn, msg string) {
	if conn == nil {
		return
	}
	wm := modelwebsocket.Message{
		Action:  modelwebsocket.Error,
		Content: msg,
	}
	if err := conn.WriteJSON(wm); err != nil {
		slog.Error(err.Error())
	}
}

// HandleWebsocketMessage implements Manager.
func (m *manager) HandleWebsocketMessage(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) bool {
	slog.Info(fmt.Sprintf("[HandleWebsocketMessage] - %s event received", wm.Action))
	switch wm.Action {
	case modelwebsocket.SelectPlayer:
		go m.handleSelectPlayer(wm, conn, r)
		return true
	case modelwebsocket.SelectAction:
		go m.handleSelectAction(wm, conn, r)
		return true
	case modelwebsocket.Undo:
		go m.handleUndo(wm, conn, r)
		return true
	case modelwebsocket.Redo:
		go m.handleRedo(wm, conn, r)
		return true
	case modelwebsocket.Cancel:
		go m.handleCancel(wm, conn, r)
		return true
	case modelwebsocket.Refresh:
		go m.handleRefresh(wm, conn, r)
		return true
	default:
		slog.Debug(fmt.Sprintf("websocket action '%s' is not handled by the recording manager", wm.Action))
		return false
	}
}

func (m *manager) handleSelectPlayer(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) {
	type content struct {
		PlayerID int    `json:"playerId"`
		Team     string `json:"team"`
	}
	var c content
	if err := json.Unmarshal([]byte(wm.Content), &c); err != nil {
		slog.Error(err.Error())
		return
	}
	side, err := recordmodel.SideFromString(c.Team)
	if err != nil {
		slog.Warn(fmt.Sprintf("[handleSelectPlayer] - rejecting select with side '%s'", c.Team))
		return
	}

	m.gsMu.Lock()
	defer m.gsMu.Unlock()
	if m.gs.Game == nil {
		slog.Warn("[handleSelectPlayer] - session has no game yet, ignoring")
		return
	}
	if m.gs.Selection.PlayerID == c.PlayerID {
		// Reselecting the selected player cancels the whole selection.
		slog.Info(fmt.Sprintf("[handleSelectPlayer] - player %d reselected, clearing selection", c.PlayerID))
		m.gs.Selection = recordmodel.Selection{}
		m.broadcastStateLocked()
		return
	}
	if !playerOnSide(m.gs.Game, c.PlayerID, side) {
		slog.Warn(fmt.Sprintf("[handleSelectPlayer] - player %d is not on side '%s'", c.PlayerID, side))
		m.sendError(conn, fmt.Sprintf("player %d is not on the %s side", c.PlayerID, side))
		return
	}
	slog.Info(fmt.Sprintf("[handleSelectPlayer] - selecting player %d on side '%s'", c.PlayerID, side))
	m.gs.Selection.PlayerID = c.PlayerID
	m.gs.Selection.Side = side
	m.broadcastStateLocked()
}

func playerOnSide(game *dnapi.Game, playerID int, side recordmodel.TeamSide) bool {
	roster := game.HomePlayers
	if side == recordmodel.SideAway {
		roster = game.AwayPlayers
	}
	for _, p := range roster {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (m *manager) handleSelectAction(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) {
	type content struct {
		LogItemID int `json:"logItemId"`
	}
	var c content
	if err := json.Unmarshal([]byte(wm.Content), &c); err != nil {
		slog.Error(err.Error())
		return
	}

	ctx := r.Context()
	m.gsMu.Lock()
	defer m.gsMu.Unlock()
	if m.gs.Selection.PlayerID == 0 {
		slog.Warn("[handleSelectAction] - no player selected, ignoring action selection")
		return
	}
	if m.gs.Selection.LogItemID == c.LogItemID {
		// Same action again clears the choice without recording.
		slog.Info(fmt.Sprintf("[handleSelectAction] - action %d reselected, clearing action", c.LogItemID))
		m.gs.Selection.LogItemID = 0
		m.broadcastStateLocked()
		return
	}
	found := false
	for _, item := range m.gs.LogItems {
		if item.ID == c.LogItemID {
			found = true
			break
		}
	}
	if !found {
		slog.Warn(fmt.Sprintf("[handleSelectAction] - unknown log item %d", c.LogItemID))
		m.sendError(conn, fmt.Sprintf("unknown action %d", c.LogItemID))
		return
	}
	m.gs.Selection.LogItemID = c.LogItemID
	// A fresh action choice records immediately.
	m.recordLocked(ctx, conn)
}

// recordLocked issues the create-log call for the current selection. The
// selection is cleared whether the call succeeds or fails. Callers hold gsMu.
func (m *manager) recordLocked(ctx context.Context, conn *websocket.Conn) {
	req := dnapi.CreateLogRequest{
		GameID:    m.gs.GameID,
		PlayerID:  m.gs.Selection.PlayerID,
		LogitemID: m.gs.Selection.LogItemID,
		GroupID:   m.gs.Game.GroupID,
	}
	m.gs.Selection = recordmodel.Selection{}

	slog.Info(fmt.Sprintf("[recordLocked] - recording action %d for player %d", req.LogitemID, req.PlayerID))
	if _, err := m.gw.CreateLog(ctx, req); err != nil {
		slog.Error(fmt.Sprintf("[recordLocked] - failed to record log : %s", err.Error()))
		m.sendError(conn, "failed to save the record, please try again")
		m.broadcastStateLocked()
		return
	}

	// A fresh record invalidates anything that was undone before it.
	m.gs.RedoDepth = 0
	if err := m.refetchLocked(ctx); err != nil {
		slog.Error(fmt.Sprintf("[recordLocked] - failed to refresh game after record : %s", err.Error()))
		m.sendError(conn, "record saved but refreshing the game failed")
	}
	m.broadcastStateLocked()
}

func (m *manager) handleUndo(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	m.gsMu.Lock()
	defer m.gsMu.Unlock()
	if m.gs.Game == nil || len(m.gs.Game.Logs) == 0 {
		slog.Info("[handleUndo] - no logs to undo")
		return
	}
	if err := m.gw.UndoLog(ctx, m.gs.GameID); err != nil {
		slog.Error(fmt.Sprintf("[handleUndo] - failed to undo last log : %s", err.Error()))
		m.sendError(conn, "failed to undo the last record, please try again")
		return
	}
	m.gs.RedoDepth++
	if err := m.refetchLocked(ctx); err != nil {
		slog.Error(fmt.Sprintf("[handleUndo] - failed to refresh game after undo : %s", err.Error()))
		m.sendError(conn, "undo applied but refreshing the game failed")
	}
	m.broadcastStateLocked()
}

func (m *manager) handleRedo(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	m.gsMu.Lock()
	defer m.gsMu.Unlock()
	if m.gs.RedoDepth == 0 {
		slog.Info("[handleRedo] - nothing undone in this session")
		return
	}
	if err := m.gw.RedoLog(ctx, m.gs.GameID); err != nil {
		slog.Error(fmt.Sprintf("[handleRedo] - failed to redo log : %s", err.Error()))
		m.sendError(conn, "failed to redo the record, please try again")
		return
	}
	m.gs.RedoDepth--
	if err := m.refetchLocked(ctx); err != nil {
		slog.Error(fmt.Sprintf("[handleRedo] - failed to refresh game after redo : %s", err.Error()))
		m.sendError(conn, "redo applied but refreshing the game failed")
	}
	m.broadcastStateLocked()
}

func (m *manager) handleCancel(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) {
	m.gsMu.Lock()
	defer m.gsMu.Unlock()
	slog.Info("[handleCancel] - clearing selection")
	m.gs.Selection = recordmodel.Selection{}
	m.broadcastStateLocked()
}

func (m *manager) handleRefresh(wm *modelwebsocket.Message, conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	m.gsMu.Lock()
	defer m.gsMu.Unlock()
	if err := m.refetchLocked(ctx); err != nil {
		slog.Error(fmt.Sprintf("[handleRefresh] - failed to refresh game : %s", err.Error()))
		m.sendError(conn, "failed to refresh the game, please try again")
		return
	}
	m.broadcastStateLocked()
}
