package dnapi

import "errors"

// Typed shapes of the DN.GG REST payloads. Responses are decoded into these
// structs at the gateway and never passed around as raw JSON.

type Group struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Player is the server-authoritative player record. The canonical field for a
// jersey number is Backnumber; CreatePlayerRequest still sends "number"
// because that is what the backend accepts on create.
type Player struct {
	ID         int    `json:"id"`
	GroupID    int    `json:"groupId"`
	Name       string `json:"name"`
	Backnumber string `json:"backnumber,omitempty"`
	Position   string `json:"position,omitempty"`
}

type GameStatus string

const (
	GameReady      GameStatus = "READY"
	GameInProgress GameStatus = "IN_PROGRESS"
	GameFinished   GameStatus = "FINISHED"
)

func GameStatusFromString(s string) (GameStatus, error) {
	switch s {
	case string(GameReady):
		return GameReady, nil
	case string(GameInProgress):
		return GameInProgress, nil
	case string(GameFinished):
		return GameFinished, nil
	}
	return "", errors.New("unsupported game status")
}

// InGamePlayer is the reduced player shape embedded in a game's rosters.
type InGamePlayer struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Backnumber string `json:"backnumber,omitempty"`
	Position   string `json:"position,omitempty"`
}

type LogItem struct {
	ID      int    `json:"id"`
	GroupID int    `json:"groupId"`
	Name    string `json:"name"`
	Value   int    `json:"value"`
}

// GameRef is the lightweight game reference embedded in per-player logs.
type GameRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

type Log struct {
	ID        int      `json:"id"`
	GroupID   int      `json:"groupId"`
	GameID    int      `json:"gameId"`
	PlayerID  int      `json:"playerId"`
	LogitemID int      `json:"logitemId"`
	Logitem   *LogItem `json:"logitem,omitempty"`
	Player    *Player  `json:"player,omitempty"`
	Game      *GameRef `json:"game,omitempty"`
}

type Game struct {
	ID          int            `json:"id"`
	GroupID     int            `json:"groupId"`
	Name        string         `json:"name"`
	Date        string         `json:"date"`
	Status      GameStatus     `json:"status"`
	HomePlayers []InGamePlayer `json:"homePlayers"`
	AwayPlayers []InGamePlayer `json:"awayPlayers"`
	Logs        []Log          `json:"logs"`
}

// DailyItemStat is one action's per-player tally inside a daily record.
type DailyItemStat struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
	Count int    `json:"count"`
}

// DailyRecord is the per-player summary returned by GET /log/daily.
type DailyRecord struct {
	ID         int                   `json:"id"`
	Name       string                `json:"name"`
	Backnumber string                `json:"backnumber,omitempty"`
	TotalScore int                   `json:"totalScore"`
	LogItem    map[int]DailyItemStat `json:"logItem,omitempty"`
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CreatePlayerRequest struct {
	GroupID int    `json:"groupId"`
	Name    string `json:"name"`
	Number  int    `json:"number"`
}

type GameTeams struct {
	TeamA []InGamePlayer `json:"teamA"`
	TeamB []InGamePlayer `json:"teamB"`
}

type CreateGameRequest struct {
	GroupID int        `json:"groupId"`
	Name    string     `json:"name"`
	Teams   GameTeams  `json:"teams"`
	Status  GameStatus `json:"status"`
}

type UpdateGameRequest struct {
	Status GameStatus `json:"status"`
}

type CreateLogRequest struct {
	GameID    int `json:"gameId"`
	PlayerID  int `json:"playerId"`
	LogitemID int `json:"logitemId"`
	GroupID   int `json:"groupId"`
}

type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	GroupID int    `json:"groupId,omitempty"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}
