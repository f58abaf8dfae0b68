package booking

import (
	"errors"

	"github.com/iliyamo/hotel-room-reservation/internal/selector"
)

// ErrInvalidCount is returned when the requested room count is not an
// integer between model.MinBookingRooms and model.MaxBookingRooms.  It is
// detected before the inventory is read.
var ErrInvalidCount = errors.New("invalid room count")

// ErrNotEnoughRooms is returned when the unbooked rooms cannot satisfy the
// request.  Booked state is left unchanged.
var ErrNotEnoughRooms = selector.ErrNotEnoughRooms

// Error reasons reported to callers.
const (
	ReasonInvalidCount   = "invalid_count"
	ReasonNotEnoughRooms = "not_enough_rooms"
	ReasonInternalError  = "internal_error"
)

// Reason maps a booking error to the reason string callers report, or ""
// for errors that are not booking outcomes.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCount):
		return ReasonInvalidCount
	case errors.Is(err, ErrNotEnoughRooms):
		return ReasonNotEnoughRooms
	default:
		return ""
	}
}
