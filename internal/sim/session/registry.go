// Package session keeps the connection id -> player mapping.
//
// A Registry is not safe for concurrent use; it is owned by the world loop.
package session

import (
	"sort"

	"loopclaim.app/internal/geo"
)

type Player struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Position  *geo.Point `json:"position"`
	Conquests int        `json:"conquests"`
}

func (p Player) clone() Player {
	if p.Position != nil {
		pos := *p.Position
		p.Position = &pos
	}
	return p
}

type Registry struct {
	players map[string]*Player
}

func NewRegistry() *Registry {
	return &Registry{players: map[string]*Player{}}
}

// Join registers a player for id. Joining an id that is already registered
// replaces the record (last call wins) and reports replaced=true.
func (r *Registry) Join(id, name, color string) (p Player, replaced bool) {
	_, replaced = r.players[id]
	np := &Player{ID: id, Name: name, Color: color}
	r.players[id] = np
	return np.clone(), replaced
}

func (r *Registry) Leave(id string) (Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	delete(r.players, id)
	return p.clone(), true
}

func (r *Registry) Get(id string) (Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return p.clone(), true
}

func (r *Registry) UpdatePosition(id string, pt geo.Point) bool {
	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.Position = &pt
	return true
}

func (r *Registry) AddConquest(id string) bool {
	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.Conquests++
	return true
}

// RemoveConquest decrements the counter, never below zero.
func (r *Registry) RemoveConquest(id string) bool {
	p, ok := r.players[id]
	if !ok {
		return false
	}
	if p.Conquests > 0 {
		p.Conquests--
	}
	return true
}

func (r *Registry) SetConquests(id string, n int) bool {
	p, ok := r.players[id]
	if !ok {
		return false
	}
	if n < 0 {
		n = 0
	}
	p.Conquests = n
	return true
}

func (r *Registry) Len() int { return len(r.players) }

// Snapshot copies the current mapping for state replay.
func (r *Registry) Snapshot() map[string]Player {
	out := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		out[id] = p.clone()
	}
	return out
}

// Ranking orders players by conquests (desc), then name, then id.
func (r *Registry) Ranking() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Conquests != out[j].Conquests {
			return out[i].Conquests > out[j].Conquests
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
