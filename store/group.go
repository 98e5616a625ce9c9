package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dngg/dngg-frontend-go/internal"
	"github.com/dngg/dngg-frontend-go/model"
	"github.com/dngg/dngg-frontend-go/model/dnapi"
)

// GroupStore remembers the currently selected group across restarts. The
// stored id is advisory only; Validate reconciles it against the freshest
// group list before any screen trusts it.
type GroupStore struct {
	d internal.Dependencies

	mu       sync.RWMutex
	selected int
	subs     []func(int)
}

func NewGroupStore(ctx context.Context, d internal.Dependencies) (*GroupStore, error) {
	s := &GroupStore{d: d}
	var sel model.GroupSelection
	if err := d.Database(ctx).First(&sel).Error; err == nil {
		s.selected = sel.GroupID
	}
	return s, nil
}

// Selected returns the current group id, 0 when none is selected.
func (s *GroupStore) Selected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *GroupStore) Select(ctx context.Context, groupID int) error {
	if groupID == 0 {
		if err := s.d.Database(ctx).Where("1 = 1").Delete(&model.GroupSelection{}).Error; err != nil {
			return err
		}
	} else {
		sel := model.GroupSelection{ID: 1, GroupID: groupID}
		if err := s.d.Database(ctx).Save(&sel).Error; err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.selected = groupID
	s.mu.Unlock()
	s.notify(groupID)
	return nil
}

// Validate keeps the stored selection only if it appears in the fetched group
// list; otherwise it falls back to the first group, or to none at all. It
// returns the selection in effect afterwards.
func (s *GroupStore) Validate(ctx context.Context, groups []dnapi.Group) (int, error) {
	current := s.Selected()
	for _, g := range groups {
		if g.ID == current {
			return current, nil
		}
	}
	if len(groups) == 0 {
		if current != 0 {
			slog.Warn(fmt.Sprintf("stored group %d no longer exists and no groups remain, clearing selection", current))
			return 0, s.Select(ctx, 0)
		}
		return 0, nil
	}
	slog.Info(fmt.Sprintf("stored group %d is not in the fetched list, selecting group %d", current, groups[0].ID))
	return groups[0].ID, s.Select(ctx, groups[0].ID)
}

// Subscribe registers fn to run with the new group id after every change.
func (s *GroupStore) Subscribe(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *GroupStore) notify(groupID int) {
	s.mu.RLock()
	subs := make([]func(int), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(groupID)
	}
}
