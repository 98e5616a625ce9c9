package model

import (
	"errors"

	"github.com/dngg/dngg-frontend-go/model/dnapi"
)

type TeamSide string

const (
	SideHome TeamSide = "home"
	SideAway TeamSide = "away"
	SideNone TeamSide = ""
)

func SideFromString(s string) (TeamSide, error) {
	switch s {
	case string(SideHome):
		return SideHome, nil
	case string(SideAway):
		return SideAway, nil
	}
	return SideNone, errors.New("unsupported team side")
}

// Selection is the scorekeeper's in-flight choice. All three fields are
// cleared together when a record lands, fails, or is cancelled.
type Selection struct {
	PlayerID  int      `json:"playerId"`
	Side      TeamSide `json:"team"`
	LogItemID int      `json:"logItemId"`
}

func (s Selection) Empty() bool {
	return s.PlayerID == 0 && s.Side == SideNone && s.LogItemID == 0
}

// SessionState is the full recording-session state pushed to every connected
// scorekeeper UI after each change. Scores are always derived from the last
// fetched log list, never accumulated locally.
type SessionState struct {
	GameID    int             `json:"gameId"`
	Game      *dnapi.Game     `json:"game"`
	LogItems  []dnapi.LogItem `json:"logItems"`
	Selection Selection       `json:"selection"`
	HomeScore int             `json:"homeScore"`
	AwayScore int             `json:"awayScore"`
	RedoDepth int             `json:"redoDepth"`
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
}

func NewSessionState(gameID int) SessionState {
	return SessionState{
		GameID:   gameID,
		LogItems: make([]dnapi.LogItem, 0),
	}
}
