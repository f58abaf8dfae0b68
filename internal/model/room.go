package model

// Hotel layout.  Floors 1 through 9 carry ten rooms each; the top floor
// carries seven.  The layout is fixed, so the inventory always holds
// TotalRooms rooms.
const (
	Floors          = 10
	RoomsPerFloor   = 10
	TopFloorRooms   = 7
	TotalRooms      = (Floors-1)*RoomsPerFloor + TopFloorRooms
	MinBookingRooms = 1
	MaxBookingRooms = 5
)

// Room describes one hotel room and its occupancy.
//
// Fields:
//  Number   – room number; floor*100+position, or 1000+position on floor 10.
//  Floor    – floor the room is on (1..10).
//  Position – index of the room along its floor's corridor, starting at 1.
//  Booked   – whether the room has been committed to a booking.
//  Selected – whether the room was booked by the most recent booking attempt.
type Room struct {
	Number   int  `json:"room_number"`
	Floor    int  `json:"floor"`
	Position int  `json:"position"`
	Booked   bool `json:"is_booked"`
	Selected bool `json:"is_selected"`
}

// Room display statuses used by renderers.
const (
	StatusAvailable   = "AVAILABLE"
	StatusBooked      = "BOOKED"
	StatusNewlyBooked = "NEWLY_BOOKED"
)

// Status returns the display status of the room.
func (r Room) Status() string {
	switch {
	case r.Booked && r.Selected:
		return StatusNewlyBooked
	case r.Booked:
		return StatusBooked
	default:
		return StatusAvailable
	}
}

// RoomsOnFloor returns how many rooms the given floor has, or 0 when the
// floor does not exist.
func RoomsOnFloor(floor int) int {
	switch {
	case floor >= 1 && floor < Floors:
		return RoomsPerFloor
	case floor == Floors:
		return TopFloorRooms
	default:
		return 0
	}
}

// RoomNumber computes the room number for a floor and position.
func RoomNumber(floor, position int) int {
	return floor*100 + position
}
