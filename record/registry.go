package record

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dngg/dngg-frontend-go/model/dnapi"
)

// Registry hands out one Manager per game. Sessions are created lazily when
// the first scorekeeper connects and stay alive for later reconnects.
type Registry struct {
	gw Gateway

	mu       sync.Mutex
	sessions map[int]Manager
}

func NewRegistry(gw Gateway) *Registry {
	return &Registry{
		gw:       gw,
		sessions: make(map[int]Manager),
	}
}

// Session returns the running session for gameID, starting one if needed.
// Recording is only offered for games the backend reports as in progress.
func (r *Registry) Session(ctx context.Context, gameID int) (Manager, error) {
	r.mu.Lock()
	if m, ok := r.sessions[gameID]; ok {
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	game, err := r.gw.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != dnapi.GameInProgress {
		return nil, fmt.Errorf("game %d is not in progress (status %s)", gameID, game.Status)
	}

	m := NewManager(r.gw, gameID)
	if err := m.Start(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[gameID]; ok {
		// Another connection raced us; keep the first session.
		return existing, nil
	}
	r.sessions[gameID] = m
	slog.Info(fmt.Sprintf("started recording session for game %d", gameID))
	return m, nil
}

// Drop forgets a session, used when the game leaves IN_PROGRESS.
func (r *Registry) Drop(gameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, gameID)
}
