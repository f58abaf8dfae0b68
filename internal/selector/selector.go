// Package selector chooses which rooms satisfy a booking request.  All
// functions are pure: they read a snapshot of rooms and never modify it.
package selector

import (
	"errors"
	"sort"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// ErrNotEnoughRooms is returned when fewer unbooked rooms exist than were
// requested.
var ErrNotEnoughRooms = errors.New("not enough rooms available")

// Phase names the search pass that produced a Selection.
type Phase string

const (
	PhaseSameFloor  Phase = "SAME_FLOOR"
	PhaseCrossFloor Phase = "CROSS_FLOOR"
)

// Selection is the outcome of a successful search.
type Selection struct {
	Rooms []model.Room
	Cost  int
	Phase Phase
}

// Numbers returns the room numbers of the selection in scan order.
func (s Selection) Numbers() []int {
	out := make([]int, 0, len(s.Rooms))
	for _, r := range s.Rooms {
		out = append(out, r.Number)
	}
	return out
}

// TravelTime is the walking cost between two rooms.  A floor change costs
// two horizontal steps.
func TravelTime(a, b model.Room) int {
	return abs(a.Position-b.Position) + abs(a.Floor-b.Floor)*2
}

// Select picks n unbooked rooms from rooms.  A window of n consecutive
// available rooms on one floor always wins over a cross-floor window, even a
// cheaper one.  Only when no floor holds n available rooms is the pool of
// every floor searched, ordered by floor then position.  Among candidates the
// one with the lowest TravelTime between its first and last room wins, and
// ties go to the first window scanned.
func Select(rooms []model.Room, n int) (Selection, error) {
	if n < 1 {
		return Selection{}, ErrNotEnoughRooms
	}

	best := window{cost: -1}
	for floor := 1; floor <= model.Floors; floor++ {
		available := availableOn(rooms, floor)
		best = scan(available, n, best)
	}
	if best.found() {
		return best.selection(PhaseSameFloor), nil
	}

	best = scan(availableAll(rooms), n, best)
	if best.found() {
		return best.selection(PhaseCrossFloor), nil
	}
	return Selection{}, ErrNotEnoughRooms
}

type window struct {
	rooms []model.Room
	cost  int
}

func (w window) found() bool { return w.cost >= 0 }

func (w window) selection(p Phase) Selection {
	out := make([]model.Room, len(w.rooms))
	copy(out, w.rooms)
	return Selection{Rooms: out, Cost: w.cost, Phase: p}
}

// scan walks every contiguous run of n rooms in sorted and returns the
// cheaper of best and the cheapest run.  Replacement needs a strictly lower
// cost.
func scan(sorted []model.Room, n int, best window) window {
	for i := 0; i+n <= len(sorted); i++ {
		sub := sorted[i : i+n]
		cost := TravelTime(sub[0], sub[n-1])
		if !best.found() || cost < best.cost {
			best = window{rooms: sub, cost: cost}
		}
	}
	return best
}

func availableOn(rooms []model.Room, floor int) []model.Room {
	var out []model.Room
	for _, r := range rooms {
		if r.Floor == floor && !r.Booked {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func availableAll(rooms []model.Room) []model.Room {
	var out []model.Room
	for _, r := range rooms {
		if !r.Booked {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
