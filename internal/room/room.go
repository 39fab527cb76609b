package room

import (
	"time"

	"github.com/cricfever/backend/internal/game"
)

// State is a room's lifecycle position.
type State string

const (
	StateWaiting  State = "waiting"
	StateToss     State = "toss"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// Player is one participant's slot in a room.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slot      string `json:"slot"` // host or guest
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

// Room pairs up to two participants with at most one live match session.
// All mutation goes through the Manager, which holds the lock; the Session
// guards its own state.
type Room struct {
	Code    string
	Overs   int
	Players []*Player
	State   State
	Session *game.Session

	// gen increments on teardown and on reverting to waiting; a scheduled
	// timer only fires if the generation it captured is still current.
	gen    uint64
	timers []*time.Timer

	// When the live delivery left the bowler's hand; zero between balls.
	ballLaunchedAt time.Time
}

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerIndex(id string) int {
	for i, p := range r.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) full() bool {
	return len(r.Players) >= 2
}

func (r *Room) allReady() bool {
	if len(r.Players) != 2 {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// invalidateTimers bumps the generation and stops anything still scheduled.
// Stopping is best-effort; the generation check is what guarantees a stale
// timer cannot touch the room.
func (r *Room) invalidateTimers() {
	r.gen++
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = r.timers[:0]
}
