// Package territory is the append-mostly store of claimed territories.
//
// A Store is not safe for concurrent use; it is owned by the world loop.
package territory

import (
	"errors"

	"loopclaim.app/internal/geo"
)

// MinPathPoints is the smallest closed path a territory may have.
const MinPathPoints = 3

var (
	ErrNotFound     = errors.New("territory: not found")
	ErrAlreadyOwner = errors.New("territory: already owned by new owner")
	ErrPathTooShort = errors.New("territory: path needs at least 3 points")
)

type Territory struct {
	ID        uint64      `json:"id"`
	OwnerID   string      `json:"ownerId"`
	OwnerName string      `json:"ownerName"`
	Color     string      `json:"color"`
	Path      []geo.Point `json:"path"`
	Name      string      `json:"name"`
}

// EndPoint is the target a challenger has to reach.
func (t Territory) EndPoint() geo.Point {
	return t.Path[len(t.Path)-1]
}

type Store struct {
	items  []*Territory
	byID   map[uint64]*Territory
	nextID uint64
}

func NewStore() *Store {
	return &Store{byID: map[uint64]*Territory{}}
}

// Create appends a territory with the next id. Ids start at 1 and a rejected
// path does not consume one.
func (s *Store) Create(ownerID, ownerName, ownerColor string, path []geo.Point, name string) (Territory, error) {
	if len(path) < MinPathPoints {
		return Territory{}, ErrPathTooShort
	}
	s.nextID++
	t := &Territory{
		ID:        s.nextID,
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Color:     ownerColor,
		Path:      geo.Clone(path),
		Name:      name,
	}
	s.items = append(s.items, t)
	s.byID[t.ID] = t
	return *t, nil
}

func (s *Store) Find(id uint64) (Territory, bool) {
	t, ok := s.byID[id]
	if !ok {
		return Territory{}, false
	}
	return *t, true
}

// TransferOwnership rewrites the owner fields of id in one step and returns
// the record before and after the change.
func (s *Store) TransferOwnership(id uint64, ownerID, ownerName, ownerColor string) (prev, next Territory, err error) {
	t, ok := s.byID[id]
	if !ok {
		return Territory{}, Territory{}, ErrNotFound
	}
	if t.OwnerID == ownerID {
		return *t, *t, ErrAlreadyOwner
	}
	prev = *t
	t.OwnerID = ownerID
	t.OwnerName = ownerName
	t.Color = ownerColor
	return prev, *t, nil
}

// All returns territories in creation order. Paths are shared with the store
// and must be treated as read-only.
func (s *Store) All() []Territory {
	out := make([]Territory, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, *t)
	}
	return out
}

func (s *Store) CountOwnedBy(ownerID string) int {
	n := 0
	for _, t := range s.items {
		if t.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func (s *Store) Len() int { return len(s.items) }
