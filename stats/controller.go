package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dngg/dngg-frontend-go/model/dnapi"
	"golang.org/x/sync/errgroup"
)

// Gateway is the slice of the backend client the aggregation views need.
type Gateway interface {
	LogItems(ctx context.Context, groupID int) ([]dnapi.LogItem, error)
	ItemLogs(ctx context.Context, groupID, logItemID int) ([]dnapi.Log, error)
	Player(ctx context.Context, id int) (dnapi.Player, error)
	PlayerLogs(ctx context.Context, playerID int) ([]dnapi.Log, error)
	TotalGamesPlayed(ctx context.Context, playerID int) (int, error)
	Games(ctx context.Context, groupID int) ([]dnapi.Game, error)
	DailyLogs(ctx context.Context, date string) ([]dnapi.DailyRecord, error)
}

// Controller fetches the collections the pure reducers need, fanning the
// per-item and per-player calls out concurrently.
type Controller struct {
	gw Gateway
}

func NewController(gw Gateway) *Controller {
	return &Controller{gw: gw}
}

const fetchLimit = 8

// Rankings builds the full ranking board for a group: the synthetic score
// ranking first, then one ranking per log item.
func (c *Controller) Rankings(ctx context.Context, groupID int, byAverage bool) ([]ItemRanking, error) {
	items, err := c.gw.LogItems(ctx, groupID)
	if err != nil {
		return nil, err
	}

	logsByItem := make([][]dnapi.Log, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i := range items {
		i := i
		g.Go(func() error {
			logs, err := c.gw.ItemLogs(gctx, groupID, items[i].ID)
			if err != nil {
				return fmt.Errorf("fetching logs for item %d: %w", items[i].ID, err)
			}
			logsByItem[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var allLogs []dnapi.Log
	playerIDs := make(map[int]struct{})
	for _, logs := range logsByItem {
		allLogs = append(allLogs, logs...)
		for _, l := range logs {
			playerIDs[l.PlayerID] = struct{}{}
		}
	}

	players := make(map[int]dnapi.Player, len(playerIDs))
	var playersMu sync.Mutex
	pg, pctx := errgroup.WithContext(ctx)
	pg.SetLimit(fetchLimit)
	for id := range playerIDs {
		id := id
		pg.Go(func() error {
			p, err := c.gw.Player(pctx, id)
			if err != nil {
				// The ranking row degrades to an id-only entry instead of
				// failing the whole board.
				slog.Warn(fmt.Sprintf("failed to fetch player %d for rankings : %s", id, err.Error()))
				return nil
			}
			playersMu.Lock()
			players[id] = p
			playersMu.Unlock()
			return nil
		})
	}
	if err := pg.Wait(); err != nil {
		return nil, err
	}

	rankings := make([]ItemRanking, 0, len(items)+1)
	rankings = append(rankings, ScoreRanking(allLogs, players, byAverage))
	for i, item := range items {
		rankings = append(rankings, RankByItem(item, logsByItem[i], players, byAverage))
	}
	return rankings, nil
}

type PlayerDetail struct {
	Player       dnapi.Player `json:"player"`
	GamesPlayed  int          `json:"gamesPlayed"`
	LogItemNames []string     `json:"logItemNames"`
	Records      []GameRecord `json:"records"`
}

// PlayerDetail gathers a player's profile, per-game records, and the full
// item-name list in parallel.
func (c *Controller) PlayerDetail(ctx context.Context, playerID int) (PlayerDetail, error) {
	var (
		player dnapi.Player
		logs   []dnapi.Log
		items  []dnapi.LogItem
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		player, err = c.gw.Player(gctx, playerID)
		return err
	})
	g.Go(func() (err error) {
		logs, err = c.gw.PlayerLogs(gctx, playerID)
		return err
	})
	g.Go(func() (err error) {
		items, err = c.gw.LogItems(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		total, err = c.gw.TotalGamesPlayed(gctx, playerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return PlayerDetail{}, err
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return PlayerDetail{
		Player:       player,
		GamesPlayed:  total,
		LogItemNames: names,
		Records:      PlayerGameRecords(logs),
	}, nil
}

// DailyDates lists the selectable dates for the daily summary screen.
func (c *Controller) DailyDates(ctx context.Context, groupID int) ([]string, error) {
	games, err := c.gw.Games(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return FinishedGameDates(games), nil
}

// Daily returns one day's per-player summaries, best total first.
func (c *Controller) Daily(ctx context.Context, date string) ([]dnapi.DailyRecord, error) {
	recs, err := c.gw.DailyLogs(ctx, date)
	if err != nil {
		return nil, err
	}
	return SortDailyRecords(recs), nil
}
