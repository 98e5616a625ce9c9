package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dngg/dngg-frontend-go/model/dnapi"
)

// TokenSource supplies the bearer token attached to outgoing requests and is
// told to drop it when the backend answers 401.
type TokenSource interface {
	Token() string
	ClearToken() error
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// Client is the single gateway to the DN.GG REST backend. All business rules
// live server-side; this only shapes requests and parses responses.
type Client struct {
	base string
	hc   *http.Client
	ts   TokenSource
}

func New(base string, timeout time.Duration, ts TokenSource) *Client {
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: timeout},
		ts:   ts,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ts != nil {
		if token := c.ts.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode == http.StatusUnauthorized && c.ts != nil {
		// The persisted token is stale; drop it before reporting the failure.
		if err := c.ts.ClearToken(); err != nil {
			slog.Warn("failed to clear local token after 401 : " + err.Error())
		}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) Groups(ctx context.Context) ([]dnapi.Group, error) {
	var gs []dnapi.Group
	if err := c.do(ctx, http.MethodGet, "/group/all", nil, nil, &gs); err != nil {
		return nil, err
	}
	return gs, nil
}

func (c *Client) CreateGroup(ctx context.Context, req dnapi.CreateGroupRequest) (dnapi.Group, error) {
	var g dnapi.Group
	if err := c.do(ctx, http.MethodPost, "/group", nil, req, &g); err != nil {
		return dnapi.Group{}, err
	}
	return g, nil
}

func (c *Client) Players(ctx context.Context, groupID int) ([]dnapi.Player, error) {
	q := url.Values{"groupId": []string{strconv.Itoa(groupID)}}
	var ps []dnapi.Player
	if err := c.do(ctx, http.MethodGet, "/player", q, nil, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func (c *Client) CreatePlayer(ctx context.Context, req dnapi.CreatePlayerRequest) (dnapi.Player, error) {
	var p dnapi.Player
	if err := c.do(ctx, http.MethodPost, "/player", nil, req, &p); err != nil {
		return dnapi.Player{}, err
	}
	return p, nil
}

func (c *Client) Player(ctx context.Context, id int) (dnapi.Player, error) {
	var p dnapi.Player
	if err := c.do(ctx, http.MethodGet, "/player/"+strconv.Itoa(id), nil, nil, &p); err != nil {
		return dnapi.Player{}, err
	}
	return p, nil
}

func (c *Client) TotalGamesPlayed(ctx context.Context, playerID int) (int, error) {
	var total int
	if err := c.do(ctx, http.MethodGet, "/player/total-games-played/"+strconv.Itoa(playerID), nil, nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *Client) Games(ctx context.Context, groupID int) ([]dnapi.Game, error) {
	q := url.Values{"groupId": []string{strconv.Itoa(groupID)}}
	var gs []dnapi.Game
	if err := c.do(ctx, http.MethodGet, "/game", q, nil, &gs); err != nil {
		return nil, err
	}
	return gs, nil
}

func (c *Client) Game(ctx context.Context, id int) (dnapi.Game, error) {
	var g dnapi.Game
	if err := c.do(ctx, http.MethodGet, "/game/"+strconv.Itoa(id), nil, nil, &g); err != nil {
		return dnapi.Game{}, err
	}
	return g, nil
}

func (c *Client) CreateGame(ctx context.Context, req dnapi.CreateGameRequest) (dnapi.Game, error) {
	var g dnapi.Game
	if err := c.do(ctx, http.MethodPost, "/game", nil, req, &g); err != nil {
		return dnapi.Game{}, err
	}
	return g, nil
}

func (c *Client) UpdateGame(ctx context.Context, id int, req dnapi.UpdateGameRequest) (dnapi.Game, error) {
	var g dnapi.Game
	if err := c.do(ctx, http.MethodPatch, "/game/"+strconv.Itoa(id), nil, req, &g); err != nil {
		return dnapi.Game{}, err
	}
	return g, nil
}

// LogItems returns the action catalog. A zero groupID asks for the caller's
// full catalog, matching the bare /logitem call some screens make.
func (c *Client) LogItems(ctx context.Context, groupID int) ([]dnapi.LogItem, error) {
	var q url.Values
	if groupID != 0 {
		q = url.Values{"groupId": []string{strconv.Itoa(groupID)}}
	}
	var items []dnapi.LogItem
	if err := c.do(ctx, http.MethodGet, "/logitem", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) DailyLogs(ctx context.Context, date string) ([]dnapi.DailyRecord, error) {
	q := url.Values{"date": []string{date}}
	var recs []dnapi.DailyRecord
	if err := c.do(ctx, http.MethodGet, "/log/daily", q, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) PlayerLogs(ctx context.Context, playerID int) ([]dnapi.Log, error) {
	var logs []dnapi.Log
	if err := c.do(ctx, http.MethodGet, "/log/player/"+strconv.Itoa(playerID), nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) ItemLogs(ctx context.Context, groupID, logItemID int) ([]dnapi.Log, error) {
	q := url.Values{
		"groupId":   []string{strconv.Itoa(groupID)},
		"logitemId": []string{strconv.Itoa(logItemID)},
	}
	var logs []dnapi.Log
	if err := c.do(ctx, http.MethodGet, "/log/logitem", q, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) CreateLog(ctx context.Context, req dnapi.CreateLogRequest) (dnapi.Log, error) {
	var l dnapi.Log
	if err := c.do(ctx, http.MethodPost, "/log", nil, req, &l); err != nil {
		return dnapi.Log{}, err
	}
	return l, nil
}

func (c *Client) UndoLog(ctx context.Context, gameID int) error {
	return c.do(ctx, http.MethodDelete, "/log/game/"+strconv.Itoa(gameID)+"/undo", nil, nil, nil)
}

func (c *Client) RedoLog(ctx context.Context, gameID int) error {
	return c.do(ctx, http.MethodPost, "/log/game/"+strconv.Itoa(gameID)+"/redo", nil, nil, nil)
}

func (c *Client) Signup(ctx context.Context, req dnapi.SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/user", nil, req, nil)
}

func (c *Client) Login(ctx context.Context, req dnapi.LoginRequest) (dnapi.LoginResponse, error) {
	var res dnapi.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/user/login", nil, req, &res); err != nil {
		return dnapi.LoginResponse{}, err
	}
	return res, nil
}
