package stats

import (
	"sort"

	"github.com/dngg/dngg-frontend-go/model/dnapi"
)

// Pure reducers over already-fetched collections. Nothing in this file talks
// to the network or mutates its inputs.

// Scores derives the per-side totals of a game from its log list: the home
// score is the sum of logitem values over logs whose player is on the home
// roster, and likewise for away. Logs whose item is missing from the catalog
// are skipped.
func Scores(game *dnapi.Game, items []dnapi.LogItem) (home int, away int) {
	if game == nil {
		return 0, 0
	}
	values := make(map[int]int, len(items))
	for _, item := range items {
		values[item.ID] = item.Value
	}
	homeIDs := make(map[int]struct{}, len(game.HomePlayers))
	for _, p := range game.HomePlayers {
		homeIDs[p.ID] = struct{}{}
	}
	for _, l := range game.Logs {
		v, ok := values[l.LogitemID]
		if !ok {
			continue
		}
		if _, isHome := homeIDs[l.PlayerID]; isHome {
			home += v
		} else {
			away += v
		}
	}
	return home, away
}

type RankingEntry struct {
	PlayerID    int     `json:"playerId"`
	PlayerName  string  `json:"playerName"`
	Backnumber  string  `json:"backnumber,omitempty"`
	Position    string  `json:"position,omitempty"`
	Total       float64 `json:"total"`
	AvgPerGame  float64 `json:"avgPerGame"`
	GamesPlayed int     `json:"gamesPlayed"`
}

type ItemRanking struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Value   int            `json:"value"`
	Players []RankingEntry `json:"players"`
}

type playerTotals struct {
	count int
	score int
	games map[int]struct{}
}

func aggregate(logs []dnapi.Log) map[int]*playerTotals {
	totals := make(map[int]*playerTotals)
	for _, l := range logs {
		t, ok := totals[l.PlayerID]
		if !ok {
			t = &playerTotals{games: make(map[int]struct{})}
			totals[l.PlayerID] = t
		}
		t.count++
		if l.Logitem != nil {
			t.score += l.Logitem.Value
		}
		t.games[l.GameID] = struct{}{}
	}
	return totals
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// sortEntries orders a ranking. Negative-value items are "bad" stats, so
// fewer is better and the order flips to ascending.
func sortEntries(entries []RankingEntry, itemValue int, byAverage bool) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Total, entries[j].Total
		if byAverage {
			a, b = entries[i].AvgPerGame, entries[j].AvgPerGame
		}
		if a == b {
			return entries[i].PlayerID < entries[j].PlayerID
		}
		if itemValue < 0 {
			return a < b
		}
		return a > b
	})
}

// RankByItem ranks players for one log item. Zero-valued items rank by raw
// occurrence count; any other item by count times the absolute value.
func RankByItem(item dnapi.LogItem, logs []dnapi.Log, players map[int]dnapi.Player, byAverage bool) ItemRanking {
	totals := aggregate(logs)
	entries := make([]RankingEntry, 0, len(totals))
	for playerID, t := range totals {
		total := float64(t.count)
		if item.Value != 0 {
			total = float64(t.count * abs(item.Value))
		}
		avg := 0.0
		if len(t.games) > 0 {
			avg = total / float64(len(t.games))
		}
		e := RankingEntry{
			PlayerID:    playerID,
			Total:       total,
			AvgPerGame:  avg,
			GamesPlayed: len(t.games),
		}
		if p, ok := players[playerID]; ok {
			e.PlayerName = p.Name
			e.Backnumber = p.Backnumber
			e.Position = p.Position
		}
		entries = append(entries, e)
	}
	sortEntries(entries, item.Value, byAverage)
	return ItemRanking{
		ID:      item.ID,
		Name:    item.Name,
		Value:   item.Value,
		Players: entries,
	}
}

// ScoreRanking builds the synthetic overall-points ranking across every item,
// summing signed logitem values per player.
func ScoreRanking(logs []dnapi.Log, players map[int]dnapi.Player, byAverage bool) ItemRanking {
	totals := aggregate(logs)
	entries := make([]RankingEntry, 0, len(totals))
	for playerID, t := range totals {
		avg := 0.0
		if len(t.games) > 0 {
			avg = float64(t.score) / float64(len(t.games))
		}
		e := RankingEntry{
			PlayerID:    playerID,
			Total:       float64(t.score),
			AvgPerGame:  avg,
			GamesPlayed: len(t.games),
		}
		if p, ok := players[playerID]; ok {
			e.PlayerName = p.Name
			e.Backnumber = p.Backnumber
			e.Position = p.Position
		}
		entries = append(entries, e)
	}
	sortEntries(entries, 1, byAverage)
	return ItemRanking{
		ID:      -1,
		Name:    "득점",
		Value:   1,
		Players: entries,
	}
}

type ItemCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Value int    `json:"value"`
}

type GameRecord struct {
	GameID     int         `json:"gameId"`
	GameName   string      `json:"gameName"`
	GameDate   string      `json:"gameDate"`
	Items      []ItemCount `json:"items"`
	TotalScore int         `json:"totalScore"`
}

// PlayerGameRecords groups one player's logs by game, counting occurrences
// per item name and summing the total score, newest game first.
func PlayerGameRecords(logs []dnapi.Log) []GameRecord {
	type gameAgg struct {
		ref   *dnapi.GameRef
		order []string
		items map[string]*ItemCount
		score int
	}
	byGame := make(map[int]*gameAgg)
	var gameOrder []int
	for i := range logs {
		l := logs[i]
		agg, ok := byGame[l.GameID]
		if !ok {
			agg = &gameAgg{ref: l.Game, items: make(map[string]*ItemCount)}
			byGame[l.GameID] = agg
			gameOrder = append(gameOrder, l.GameID)
		}
		if l.Logitem == nil {
			continue
		}
		ic, ok := agg.items[l.Logitem.Name]
		if !ok {
			ic = &ItemCount{Name: l.Logitem.Name, Value: l.Logitem.Value}
			agg.items[l.Logitem.Name] = ic
			agg.order = append(agg.order, l.Logitem.Name)
		}
		ic.Count++
		agg.score += l.Logitem.Value
	}

	records := make([]GameRecord, 0, len(byGame))
	for _, gameID := range gameOrder {
		agg := byGame[gameID]
		rec := GameRecord{
			GameID:     gameID,
			TotalScore: agg.score,
			Items:      make([]ItemCount, 0, len(agg.order)),
		}
		if agg.ref != nil {
			rec.GameName = agg.ref.Name
			rec.GameDate = agg.ref.Date
		}
		for _, name := range agg.order {
			rec.Items = append(rec.Items, *agg.items[name])
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].GameDate == records[j].GameDate {
			return records[i].GameID > records[j].GameID
		}
		return records[i].GameDate > records[j].GameDate
	})
	return records
}

// FinishedGameDates lists the distinct dates of finished games, newest first.
func FinishedGameDates(games []dnapi.Game) []string {
	seen := make(map[string]struct{})
	dates := make([]string, 0)
	for _, g := range games {
		if g.Status != dnapi.GameFinished {
			continue
		}
		if _, ok := seen[g.Date]; ok {
			continue
		}
		seen[g.Date] = struct{}{}
		dates = append(dates, g.Date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// SortDailyRecords orders a day's per-player summaries by total score,
// highest first.
func SortDailyRecords(recs []dnapi.DailyRecord) []dnapi.DailyRecord {
	out := make([]dnapi.DailyRecord, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore == out[j].TotalScore {
			return out[i].ID < out[j].ID
		}
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}
