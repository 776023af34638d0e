// Package race tracks in-progress races and decides when one completes.
//
// The engine only decides. Applying a completed race to the territory store
// and the session registry is left to the caller, which must do it inside the
// same critical section as Feed.
package race

import (
	"loopclaim.app/internal/geo"
)

type Mode string

const (
	ModeNormal    Mode = "normal"
	ModeChallenge Mode = "challenge"
)

func (m Mode) Valid() bool { return m == ModeNormal || m == ModeChallenge }

type Rules struct {
	// CloseRadiusM is how near the last point must get to the goal.
	CloseRadiusM float64
	// MinLoopLengthM guards normal races against looping in place.
	MinLoopLengthM float64
	// MinPoints is the buffered point count required before either check.
	MinPoints int
}

func DefaultRules() Rules {
	return Rules{CloseRadiusM: 25, MinLoopLengthM: 100, MinPoints: 3}
}

type Race struct {
	Mode     Mode
	TargetID uint64 // challenge only
	Name     string // normal only

	Started  bool
	Start    geo.Point
	Path     []geo.Point
	Distance float64
}

func (r *Race) clone() Race {
	c := *r
	c.Path = geo.Clone(r.Path)
	return c
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeConquest
	OutcomeChallenge
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConquest:
		return "conquest"
	case OutcomeChallenge:
		return "challenge"
	default:
		return "none"
	}
}

type Progress struct {
	Mode     Mode
	TargetID uint64
	Distance float64
	Points   int

	Outcome  Outcome
	Finished *Race // set when Outcome != OutcomeNone
}

// TargetLookup resolves the current path of a challenged territory.
type TargetLookup func(id uint64) ([]geo.Point, bool)

type Engine struct {
	rules Rules
	races map[string]*Race
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules, races: map[string]*Race{}}
}

func (e *Engine) Rules() Rules { return e.rules }

// Start begins a race for playerID, discarding any race already in progress.
func (e *Engine) Start(playerID string, mode Mode, targetID uint64, name string) (cancelled bool) {
	_, cancelled = e.races[playerID]
	r := &Race{Mode: mode}
	switch mode {
	case ModeChallenge:
		r.TargetID = targetID
	default:
		r.Mode = ModeNormal
		r.Name = name
	}
	e.races[playerID] = r
	return cancelled
}

func (e *Engine) Cancel(playerID string) bool {
	if _, ok := e.races[playerID]; !ok {
		return false
	}
	delete(e.races, playerID)
	return true
}

func (e *Engine) Active(playerID string) (Race, bool) {
	r, ok := e.races[playerID]
	if !ok {
		return Race{}, false
	}
	return r.clone(), true
}

func (e *Engine) Len() int { return len(e.races) }

// Feed applies one position report. ok is false when playerID has no race.
func (e *Engine) Feed(playerID string, pt geo.Point, lookup TargetLookup) (p Progress, ok bool) {
	r, ok := e.races[playerID]
	if !ok {
		return Progress{}, false
	}

	if !r.Started {
		r.Started = true
		r.Start = pt
	} else {
		r.Path = append(r.Path, pt)
	}
	r.Distance = geo.PathLength(r.Path)

	p = Progress{
		Mode:     r.Mode,
		TargetID: r.TargetID,
		Distance: r.Distance,
		Points:   len(r.Path),
	}

	switch r.Mode {
	case ModeChallenge:
		if e.challengeDone(r, lookup) {
			p.Outcome = OutcomeChallenge
		}
	default:
		if e.loopClosed(r) {
			p.Outcome = OutcomeConquest
		}
	}
	if p.Outcome != OutcomeNone {
		fin := r.clone()
		p.Finished = &fin
		delete(e.races, playerID)
	}
	return p, true
}

func (e *Engine) loopClosed(r *Race) bool {
	if len(r.Path) < e.rules.MinPoints {
		return false
	}
	last := r.Path[len(r.Path)-1]
	if geo.Distance(last, r.Start) >= e.rules.CloseRadiusM {
		return false
	}
	return r.Distance >= e.rules.MinLoopLengthM
}

func (e *Engine) challengeDone(r *Race, lookup TargetLookup) bool {
	if len(r.Path) < e.rules.MinPoints || lookup == nil {
		return false
	}
	target, ok := lookup(r.TargetID)
	if !ok || len(target) == 0 {
		return false
	}
	last := r.Path[len(r.Path)-1]
	return geo.Distance(last, target[len(target)-1]) < e.rules.CloseRadiusM
}
