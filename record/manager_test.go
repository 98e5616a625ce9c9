package record

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dngg/dngg-frontend-go/model/dnapi"
	modelwebsocket "github.com/dngg/dngg-frontend-go/model/websocket"
	recordmodel "github.com/dngg/dngg-frontend-go/record/model"
	"github.com/stretchr/testify/assert"
)

// fakeGateway keeps the game log in memory and mimics the backend's
// undo/redo stacks.
type fakeGateway struct {
	mu         sync.Mutex
	game       dnapi.Game
	items      []dnapi.LogItem
	logs       []dnapi.Log
	undone     []dnapi.Log
	nextLogID  int
	failCreate bool
}

func (f *fakeGateway) Game(ctx context.Context, id int) (dnapi.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	game := f.game
	game.Logs = make([]dnapi.Log, len(f.logs))
	copy(game.Logs, f.logs)
	return game, nil
}

func (f *fakeGateway) LogItems(ctx context.Context, groupID int) ([]dnapi.LogItem, error) {
	return f.items, nil
}

func (f *fakeGateway) CreateLog(ctx context.Context, req dnapi.CreateLogRequest) (dnapi.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return dnapi.Log{}, errors.New("backend rejected the log")
	}
	f.nextLogID++
	log := dnapi.Log{
		ID:        f.nextLogID,
		GroupID:   req.GroupID,
		GameID:    req.GameID,
		PlayerID:  req.PlayerID,
		LogitemID: req.LogitemID,
	}
	f.logs = append(f.logs, log)
	f.undone = nil
	return log, nil
}

func (f *fakeGateway) UndoLog(ctx context.Context, gameID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.logs) == 0 {
		return errors.New("nothing to undo")
	}
	last := f.logs[len(f.logs)-1]
	f.logs = f.logs[:len(f.logs)-1]
	f.undone = append(f.undone, last)
	return nil
}

func (f *fakeGateway) RedoLog(ctx context.Context, gameID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.undone) == 0 {
		return errors.New("nothing to redo")
	}
	last := f.undone[len(f.undone)-1]
	f.undone = f.undone[:len(f.undone)-1]
	f.logs = append(f.logs, last)
	return nil
}

func setupTest(t *testing.T) (*manager, *fakeGateway) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	gw := &fakeGateway{
		game: dnapi.Game{
			ID:      7,
			GroupID: 1,
			Name:    "friendly",
			Date:    "2025-05-10",
			Status:  dnapi.GameInProgress,
			HomePlayers: []dnapi.InGamePlayer{
				{ID: 11, Name: "Kim"},
				{ID: 12, Name: "Lee"},
			},
			AwayPlayers: []dnapi.InGamePlayer{
				{ID: 21, Name: "Park"},
			},
		},
		items: []dnapi.LogItem{
			{ID: 1, GroupID: 1, Name: "2점슛", Value: 2},
			{ID: 2, GroupID: 1, Name: "3점슛", Value: 3},
			{ID: 3, GroupID: 1, Name: "파울", Value: -1},
		},
	}

	m := NewManager(gw, 7).(*manager)
	assert.NoError(t, m.Start(context.Background()))
	return m, gw
}

func selectPlayerMessage(playerID int, team string) *modelwebsocket.Message {
	content, _ := json.Marshal(map[string]interface{}{"playerId": playerID, "team": team})
	return &modelwebsocket.Message{Action: modelwebsocket.SelectPlayer, Content: string(content)}
}

func selectActionMessage(logItemID int) *modelwebsocket.Message {
	content, _ := json.Marshal(map[string]interface{}{"logItemId": logItemID})
	return &modelwebsocket.Message{Action: modelwebsocket.SelectAction, Content: string(content)}
}

func TestE2ERecordingFlow(t *testing.T) {
	m, gw := setupTest(t)

	t.Run("Select a home player", func(t *testing.T) {
		m.HandleWebsocketMessage(selectPlayerMessage(11, "home"), nil, &http.Request{})

		time.Sleep(100 * time.Millisecond) // Allow time for the go routine to execute

		m.gsMu.RLock()
		assert.Equal(t, 11, m.gs.Selection.PlayerID)
		assert.Equal(t, recordmodel.SideHome, m.gs.Selection.Side)
		m.gsMu.RUnlock()
	})

	t.Run("Reselecting the player clears the selection", func(t *testing.T) {
		m.HandleWebsocketMessage(selectPlayerMessage(11, "home"), nil, &http.Request{})

		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.True(t, m.gs.Selection.Empty())
		m.gsMu.RUnlock()
	})

	t.Run("Selecting a player not on the side is rejected", func(t *testing.T) {
		m.HandleWebsocketMessage(selectPlayerMessage(21, "home"), nil, &http.Request{})

		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.True(t, m.gs.Selection.Empty())
		m.gsMu.RUnlock()
	})

	t.Run("Selecting an action records immediately", func(t *testing.T) {
		m.HandleWebsocketMessage(selectPlayerMessage(11, "home"), nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)
		m.HandleWebsocketMessage(selectActionMessage(2), nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.True(t, m.gs.Selection.Empty())
		assert.Equal(t, 3, m.gs.HomeScore)
		assert.Equal(t, 0, m.gs.AwayScore)
		assert.True(t, m.gs.CanUndo)
		assert.False(t, m.gs.CanRedo)
		m.gsMu.RUnlock()

		assert.Len(t, gw.logs, 1)
		assert.Equal(t, 11, gw.logs[0].PlayerID)
		assert.Equal(t, 2, gw.logs[0].LogitemID)
	})

	t.Run("A failed record still clears the selection", func(t *testing.T) {
		gw.mu.Lock()
		gw.failCreate = true
		gw.mu.Unlock()

		m.HandleWebsocketMessage(selectPlayerMessage(21, "away"), nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)
		m.HandleWebsocketMessage(selectActionMessage(1), nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.True(t, m.gs.Selection.Empty())
		assert.Equal(t, 3, m.gs.HomeScore)
		assert.Equal(t, 0, m.gs.AwayScore)
		m.gsMu.RUnlock()

		assert.Len(t, gw.logs, 1)

		gw.mu.Lock()
		gw.failCreate = false
		gw.mu.Unlock()
	})

	t.Run("Undo removes the last record and enables redo", func(t *testing.T) {
		m.HandleWebsocketMessage(&modelwebsocket.Message{Action: modelwebsocket.Undo}, nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.Equal(t, 0, m.gs.HomeScore)
		assert.Equal(t, 1, m.gs.RedoDepth)
		assert.False(t, m.gs.CanUndo)
		assert.True(t, m.gs.CanRedo)
		m.gsMu.RUnlock()

		assert.Len(t, gw.logs, 0)
	})

	t.Run("Undo with no logs is a no-op", func(t *testing.T) {
		m.HandleWebsocketMessage(&modelwebsocket.Message{Action: modelwebsocket.Undo}, nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.Equal(t, 1, m.gs.RedoDepth)
		m.gsMu.RUnlock()
	})

	t.Run("Redo restores the undone record exactly once", func(t *testing.T) {
		m.HandleWebsocketMessage(&modelwebsocket.Message{Action: modelwebsocket.Redo}, nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.Equal(t, 3, m.gs.HomeScore)
		assert.Equal(t, 0, m.gs.RedoDepth)
		assert.False(t, m.gs.CanRedo)
		m.gsMu.RUnlock()

		assert.Len(t, gw.logs, 1)

		// A second redo has nothing left to restore.
		m.HandleWebsocketMessage(&modelwebsocket.Message{Action: modelwebsocket.Redo}, nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)
		assert.Len(t, gw.logs, 1)
	})

	t.Run("A fresh record clears the redo history", func(t *testing.T) {
		m.HandleWebsocketMessage(&modelwebsocket.Message{Action: modelwebsocket.Undo}, nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.HandleWebsocketMessage(selectPlayerMessage(12, "home"), nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)
		m.HandleWebsocketMessage(selectActionMessage(1), nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.Equal(t, 0, m.gs.RedoDepth)
		assert.False(t, m.gs.CanRedo)
		assert.Equal(t, 2, m.gs.HomeScore)
		m.gsMu.RUnlock()
	})

	t.Run("Cancel clears an in-flight selection", func(t *testing.T) {
		m.HandleWebsocketMessage(selectPlayerMessage(11, "home"), nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.HandleWebsocketMessage(&modelwebsocket.Message{Action: modelwebsocket.Cancel}, nil, &http.Request{})
		time.Sleep(100 * time.Millisecond)

		m.gsMu.RLock()
		assert.True(t, m.gs.Selection.Empty())
		m.gsMu.RUnlock()
	})

	t.Run("Unknown actions are not handled", func(t *testing.T) {
		handled := m.HandleWebsocketMessage(&modelwebsocket.Message{Action: "roll"}, nil, &http.Request{})
		assert.False(t, handled)
	})
}

func TestSelectActionWithoutPlayer(t *testing.T) {
	m, gw := setupTest(t)

	m.HandleWebsocketMessage(selectActionMessage(1), nil, &http.Request{})
	time.Sleep(100 * time.Millisecond)

	m.gsMu.RLock()
	assert.True(t, m.gs.Selection.Empty())
	m.gsMu.RUnlock()
	assert.Len(t, gw.logs, 0)
}
