// Package inventory holds the hotel's rooms and their occupancy.  All
// methods are safe for concurrent use; reads return deep copies so callers
// can hand snapshots to the selector without holding any lock.
package inventory

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// DefaultOccupancyRate is the chance that Randomize marks a room booked.
const DefaultOccupancyRate = 0.4

var (
	// ErrUnknownRoom is returned when a commit names a room that does not exist.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrRoomAlreadyBooked is returned when a commit names a room that is
	// already booked.
	ErrRoomAlreadyBooked = errors.New("room already booked")
)

// Inventory owns the fixed set of hotel rooms.
type Inventory struct {
	mu    sync.RWMutex
	rooms []model.Room
	index map[int]int // room number -> slice index

	rate  float64
	float func() float64
}

// Option configures an Inventory.
type Option func(*Inventory)

// WithOccupancyRate sets the per-room booking probability used by
// Randomize.  Values outside [0,1] are clamped.
func WithOccupancyRate(rate float64) Option {
	return func(inv *Inventory) {
		switch {
		case rate < 0:
			rate = 0
		case rate > 1:
			rate = 1
		}
		inv.rate = rate
	}
}

// WithRandom replaces the random source used by Randomize.  The function
// must return values in [0,1).
func WithRandom(f func() float64) Option {
	return func(inv *Inventory) {
		if f != nil {
			inv.float = f
		}
	}
}

// New builds an inventory holding every room of the hotel, all unbooked.
func New(opts ...Option) *Inventory {
	inv := &Inventory{rate: DefaultOccupancyRate, float: rand.Float64}
	for _, opt := range opts {
		opt(inv)
	}
	inv.rooms, inv.index = generate()
	return inv
}

// generate lays out the hotel floor by floor, position by position.
func generate() ([]model.Room, map[int]int) {
	rooms := make([]model.Room, 0, model.TotalRooms)
	index := make(map[int]int, model.TotalRooms)
	for floor := 1; floor <= model.Floors; floor++ {
		for pos := 1; pos <= model.RoomsOnFloor(floor); pos++ {
			num := model.RoomNumber(floor, pos)
			index[num] = len(rooms)
			rooms = append(rooms, model.Room{Number: num, Floor: floor, Position: pos})
		}
	}
	return rooms, index
}

// Rooms returns a copy of every room ordered by floor then position.
func (inv *Inventory) Rooms() []model.Room {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make([]model.Room, len(inv.rooms))
	copy(out, inv.rooms)
	return out
}

// Room looks up a single room by number.
func (inv *Inventory) Room(number int) (model.Room, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	i, ok := inv.index[number]
	if !ok {
		return model.Room{}, false
	}
	return inv.rooms[i], true
}

// Available counts unbooked rooms.
func (inv *Inventory) Available() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	n := 0
	for _, r := range inv.rooms {
		if !r.Booked {
			n++
		}
	}
	return n
}

// ClearSelection drops the newly-booked marker from every room.
func (inv *Inventory) ClearSelection() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i := range inv.rooms {
		inv.rooms[i].Selected = false
	}
}

// Commit books the given rooms and marks them as the most recent booking.
// Every other room loses its selected marker.  Nothing changes when any
// number is unknown or already booked.
func (inv *Inventory) Commit(numbers []int) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, num := range numbers {
		i, ok := inv.index[num]
		if !ok {
			return fmt.Errorf("commit room %d: %w", num, ErrUnknownRoom)
		}
		if inv.rooms[i].Booked {
			return fmt.Errorf("commit room %d: %w", num, ErrRoomAlreadyBooked)
		}
	}
	for i := range inv.rooms {
		inv.rooms[i].Selected = false
	}
	for _, num := range numbers {
		r := &inv.rooms[inv.index[num]]
		r.Booked = true
		r.Selected = true
	}
	return nil
}

// Reset regenerates the hotel with every room unbooked.
func (inv *Inventory) Reset() {
	rooms, index := generate()
	inv.mu.Lock()
	inv.rooms, inv.index = rooms, index
	inv.mu.Unlock()
}

// Randomize books each room independently with the configured occupancy
// rate and clears every selected marker.
func (inv *Inventory) Randomize() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i := range inv.rooms {
		inv.rooms[i].Booked = inv.float() < inv.rate
		inv.rooms[i].Selected = false
	}
}
