// Package session holds per-browser-session conversation state.
//
// A Context is created when a browser first opens an app and is discarded
// when the session ends or expires. Handlers receive it explicitly; there is
// no process-wide history.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"visionchat/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Store loads, persists and discards session contexts. A context reaches
// the store on its first Save; until then it lives only in the request.
type Store interface {
	Load(ctx context.Context, id string) (*Context, error)
	Save(ctx context.Context, sc *Context) error
	Discard(ctx context.Context, id string) error
}

// Context is the explicit per-session state passed to every handler.
type Context struct {
	ID        string
	App       string
	CreatedAt time.Time
	History   *History
}

// New starts a session for app without storing it.
func New(app string) *Context {
	return &Context{
		ID:        uuid.NewString(),
		App:       app,
		CreatedAt: time.Now().UTC(),
		History:   &History{},
	}
}

// History is an append-only, insertion-ordered list of turns.
type History struct {
	mu    sync.RWMutex
	turns []models.Turn
}

// NewHistory seeds a history with existing turns, in order.
func NewHistory(turns []models.Turn) *History {
	cloned := make([]models.Turn, len(turns))
	copy(cloned, turns)
	return &History{turns: cloned}
}

func (h *History) Append(turns ...models.Turn) {
	h.mu.Lock()
	h.turns = append(h.turns, turns...)
	h.mu.Unlock()
}

// All returns a copy of the turns in insertion order.
func (h *History) All() []models.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
