// Package queue defines message payloads exchanged over the message broker
// together with the publisher and consumer for them.
package queue

// RoomsBookedQueue is the durable queue that carries RoomsBookedEvent.
const RoomsBookedQueue = "rooms.booked"

// RoomsBookedEvent is published when a booking is committed to the
// inventory.  It carries enough information for downstream consumers to log
// or notify without asking the service for its state.
type RoomsBookedEvent struct {
	BookingID      string `json:"booking_id"`
	RoomNumbers    []int  `json:"rooms"`
	Floors         []int  `json:"floors"`
	TravelTime     int    `json:"travel_time"`
	Phase          string `json:"phase"`
	AvailableAfter int    `json:"available_after"`
	BookedAt       string `json:"booked_at"`
}
