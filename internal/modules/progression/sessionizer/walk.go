package sessionizer

import (
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
)

// Ping is the part of a raw event the walk looks at.
type Ping struct {
	ID   uuid.UUID
	Type string
	At   time.Time
}

func PingsFrom(events []*types.RawActivityEvent) []Ping {
	out := make([]Ping, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		out = append(out, Ping{ID: e.ID, Type: e.ActivityType, At: e.OccurredAt.UTC()})
	}
	return out
}

// Session is a reconstructed span of pings. Seeded marks the session that
// continues an already persisted in-progress activity; Ended marks a session
// closed by a pause or end ping rather than by silence.
type Session struct {
	Start    time.Time
	End      time.Time
	EventIDs []uuid.UUID
	Seeded   bool
	Ended    bool
}

func (s Session) Duration() time.Duration {
	if s.End.Before(s.Start) {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Walk is the outcome of folding one group of pings.
type Walk struct {
	Closed  []Session
	Open    *Session
	Orphans []uuid.UUID
}

// EventIDs lists every ping folded into a session (closed or open).
func (w Walk) EventIDs() []uuid.UUID {
	var out []uuid.UUID
	for _, s := range w.Closed {
		out = append(out, s.EventIDs...)
	}
	if w.Open != nil {
		out = append(out, w.Open.EventIDs...)
	}
	return out
}

// WalkPings folds pings (sorted by occurrence, never arrival) into sessions.
// seed, when non-nil, is the open session carried over from a previous batch.
// A silence longer than gap closes the open session at its last ping. A late
// ping dated before the seed's start moves the start back when it lies within
// gap of it; older ones are orphans.
func WalkPings(seed *Session, pings []Ping, gap time.Duration) Walk {
	sorted := make([]Ping, len(pings))
	copy(sorted, pings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	var w Walk
	var open *Session
	if seed != nil {
		s := *seed
		s.EventIDs = append([]uuid.UUID(nil), seed.EventIDs...)
		open = &s
	}
	closeOpen := func() {
		w.Closed = append(w.Closed, *open)
		open = nil
	}

	for _, p := range sorted {
		if open != nil && p.At.Sub(open.End) > gap {
			closeOpen()
		}
		if open != nil && open.Start.Sub(p.At) > gap {
			w.Orphans = append(w.Orphans, p.ID)
			continue
		}
		if open == nil {
			if !progression.Opens(p.Type) {
				w.Orphans = append(w.Orphans, p.ID)
				continue
			}
			open = &Session{Start: p.At, End: p.At}
		}
		if p.At.Before(open.Start) {
			open.Start = p.At
		}
		if p.At.After(open.End) {
			open.End = p.At
		}
		open.EventIDs = append(open.EventIDs, p.ID)
		if !progression.Opens(p.Type) {
			open.Ended = true
			closeOpen()
		}
	}
	w.Open = open
	return w
}
