package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dngg/dngg-frontend-go/internal"
	"github.com/dngg/dngg-frontend-go/model"
	"github.com/dngg/dngg-frontend-go/model/dnapi"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrPlayerAlreadyAssigned = errors.New("player already belongs to a team in this group")

// TeamStore manages the client-local team compositions. Teams exist only in
// the local database, scoped by group id; they are a roster-organization
// convenience with no server-side counterpart and are not a source of truth
// about players.
type TeamStore struct {
	d internal.Dependencies
}

func NewTeamStore(d internal.Dependencies) *TeamStore {
	return &TeamStore{d: d}
}

func (s *TeamStore) Teams(ctx context.Context, groupID int) ([]model.LocalTeam, error) {
	teams := make([]model.LocalTeam, 0)
	err := s.d.Database(ctx).Preload("Players").
		Order("created_at").
		Find(&teams, "group_id = ?", groupID).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *TeamStore) CreateTeam(ctx context.Context, groupID int, name string) (model.LocalTeam, error) {
	team := model.LocalTeam{
		ID:      uuid.NewString(),
		GroupID: groupID,
		Name:    name,
	}
	if err := s.d.Database(ctx).Create(&team).Error; err != nil {
		return model.LocalTeam{}, err
	}
	team.Players = make([]model.LocalTeamPlayer, 0)
	return team, nil
}

// AddPlayers puts backend players on a local team. A player can be on at most
// one team per group.
func (s *TeamStore) AddPlayers(ctx context.Context, teamID string, players []dnapi.Player) error {
	return s.d.Database(ctx).Transaction(func(tx *gorm.DB) error {
		var team model.LocalTeam
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			return err
		}
		for _, p := range players {
			var count int64
			err := tx.Model(&model.LocalTeamPlayer{}).
				Joins("JOIN local_teams ON local_teams.id = local_team_players.team_id").
				Where("local_teams.group_id = ? AND local_team_players.player_id = ?", team.GroupID, p.ID).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: player %d", ErrPlayerAlreadyAssigned, p.ID)
			}
			member := model.LocalTeamPlayer{
				TeamID:     teamID,
				PlayerID:   p.ID,
				Name:       p.Name,
				Backnumber: p.Backnumber,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *TeamStore) RemovePlayer(ctx context.Context, teamID string, playerID int) error {
	return s.d.Database(ctx).
		Where("team_id = ? AND player_id = ?", teamID, playerID).
		Delete(&model.LocalTeamPlayer{}).Error
}

// Reset drops every team of a group along with their memberships.
func (s *TeamStore) Reset(ctx context.Context, groupID int) error {
	return s.d.Database(ctx).Transaction(func(tx *gorm.DB) error {
		var teams []model.LocalTeam
		if err := tx.Find(&teams, "group_id = ?", groupID).Error; err != nil {
			return err
		}
		for _, t := range teams {
			if err := tx.Where("team_id = ?", t.ID).Delete(&model.LocalTeamPlayer{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("group_id = ?", groupID).Delete(&model.LocalTeam{}).Error
	})
}

// AvailablePlayers filters out the backend players that already sit on one of
// the local teams.
func AvailablePlayers(players []dnapi.Player, teams []model.LocalTeam) []dnapi.Player {
	assigned := map[int]struct{}{}
	for _, t := range teams {
		for _, p := range t.Players {
			assigned[p.PlayerID] = struct{}{}
		}
	}
	out := make([]dnapi.Player, 0, len(players))
	for _, p := range players {
		if _, ok := assigned[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
