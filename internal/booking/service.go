// Package booking turns a requested room count into committed rooms.  It
// validates the count, asks the selector for the best rooms and commits them
// to the inventory while holding a single writer lock, then fans the result
// out to the event publisher, the ledger and state observers.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/inventory"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/queue"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/selector"
)

// Publisher delivers booking events to the broker.
type Publisher interface {
	PublishRoomsBooked(ctx context.Context, ev queue.RoomsBookedEvent) error
}

// Ledger records committed bookings.
type Ledger interface {
	Create(ctx context.Context, b *repository.BookingRecord) error
}

// Observer is told about every change to room state.  Calls are made one at
// a time, in the order the changes happened; implementations must not block
// for long because the next mutation waits for them.
type Observer interface {
	RoomsChanged(ctx context.Context, rooms []model.Room)
}

// Result describes a committed booking.
type Result struct {
	BookingID  string         `json:"booking_id"`
	Rooms      []int          `json:"rooms"`
	TravelTime int            `json:"travel_time"`
	Phase      selector.Phase `json:"phase"`
	BookedAt   time.Time      `json:"booked_at"`
}

// Service is the single entry point for booking, reset and randomize.
type Service struct {
	inv    *inventory.Inventory
	logger *zap.Logger

	publisher Publisher
	ledger    Ledger
	observers []Observer

	// mu serializes every mutation so the snapshot read by the selector
	// stays valid until its rooms are committed.
	mu sync.Mutex
	// notifyMu orders observer deliveries; see release.
	notifyMu sync.Mutex
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithLedger sets the booking ledger.
func WithLedger(l Ledger) Option { return func(s *Service) { s.ledger = l } }

// WithObserver adds a room state observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires a Service around inv.  A nil logger disables logging.
func NewService(inv *inventory.Inventory, logger *zap.Logger, opts ...Option) *Service {
	if inv == nil {
		panic("nil inventory passed to NewService")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{inv: inv, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateCount reports ErrInvalidCount when n is outside the bookable range.
func ValidateCount(n int) error {
	if n < model.MinBookingRooms || n > model.MaxBookingRooms {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidCount, n, model.MinBookingRooms, model.MaxBookingRooms)
	}
	return nil
}

// ParseCount decodes a JSON room count.  Integers and integral numeric
// strings are accepted; anything else yields ErrInvalidCount.  The range is
// not checked here.
func ParseCount(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing", ErrInvalidCount)
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidCount, err)
		}
	} else {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return 0, fmt.Errorf("%w: not a number", ErrInvalidCount)
		}
		text = num.String()
	}
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidCount, text)
	}
	return int(f), nil
}

// RequestBooking books count rooms.  An out-of-range count returns
// ErrInvalidCount without touching the inventory.  When no rooms fit the
// request ErrNotEnoughRooms is returned; the attempt still clears every
// newly-booked marker, while booked rooms stay as they were.
//
// Ledger, publisher and observers run after the commit on a context that
// is detached from ctx, so a caller that goes away does not lose them.
func (s *Service) RequestBooking(ctx context.Context, count int) (Result, error) {
	if err := ValidateCount(count); err != nil {
		return Result{}, err
	}
	bg := context.WithoutCancel(ctx)

	s.mu.Lock()
	s.inv.ClearSelection()
	sel, err := selector.Select(s.inv.Rooms(), count)
	if err != nil {
		available := s.inv.Available()
		s.release(bg)
		s.logger.Info("booking rejected",
			zap.Int("count", count),
			zap.Int("available", available),
			zap.Error(err))
		return Result{}, err
	}
	numbers := sel.Numbers()
	if err := s.inv.Commit(numbers); err != nil {
		s.release(bg)
		return Result{}, fmt.Errorf("commit booking: %w", err)
	}
	available := s.inv.Available()
	s.release(bg)

	res := Result{
		BookingID:  uuid.NewString(),
		Rooms:      numbers,
		TravelTime: sel.Cost,
		Phase:      sel.Phase,
		BookedAt:   s.now().UTC(),
	}
	s.logger.Info("rooms booked",
		zap.String("booking_id", res.BookingID),
		zap.Ints("rooms", res.Rooms),
		zap.Int("travel_time", res.TravelTime),
		zap.String("phase", string(res.Phase)),
		zap.Int("available", available))

	s.record(bg, res)
	s.publish(bg, res, sel, available)
	return res, nil
}

// Reset restores the hotel to every room unbooked.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	s.inv.Reset()
	s.release(context.WithoutCancel(ctx))
	s.logger.Info("inventory reset")
}

// Randomize books rooms at random to simulate occupancy.
func (s *Service) Randomize(ctx context.Context) {
	s.mu.Lock()
	s.inv.Randomize()
	available := s.inv.Available()
	s.release(context.WithoutCancel(ctx))
	s.logger.Info("inventory randomized", zap.Int("available", available))
}

// Rooms returns a snapshot of every room.
func (s *Service) Rooms() []model.Room {
	return s.inv.Rooms()
}

func (s *Service) record(ctx context.Context, res Result) {
	if s.ledger == nil {
		return
	}
	rec := &repository.BookingRecord{
		BookingID:   res.BookingID,
		RoomNumbers: res.Rooms,
		TravelTime:  res.TravelTime,
		Phase:       string(res.Phase),
		BookedAt:    res.BookedAt,
	}
	if err := s.ledger.Create(ctx, rec); err != nil {
		s.logger.Warn("ledger write failed", zap.String("booking_id", res.BookingID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, res Result, sel selector.Selection, available int) {
	if s.publisher == nil {
		return
	}
	floors := make([]int, 0, len(sel.Rooms))
	for _, r := range sel.Rooms {
		if len(floors) == 0 || floors[len(floors)-1] != r.Floor {
			floors = append(floors, r.Floor)
		}
	}
	ev := queue.RoomsBookedEvent{
		BookingID:      res.BookingID,
		RoomNumbers:    res.Rooms,
		Floors:         floors,
		TravelTime:     res.TravelTime,
		Phase:          string(res.Phase),
		AvailableAfter: available,
		BookedAt:       res.BookedAt.Format(time.RFC3339),
	}
	if err := s.publisher.PublishRoomsBooked(ctx, ev); err != nil {
		s.logger.Warn("publish booking event failed", zap.String("booking_id", res.BookingID), zap.Error(err))
	}
}

// release must be called with s.mu held.  It snapshots the rooms, unlocks
// s.mu and hands the snapshot to every observer.  notifyMu is taken before
// s.mu is dropped, so observers see snapshots in mutation order.
func (s *Service) release(ctx context.Context) {
	if len(s.observers) == 0 {
		s.mu.Unlock()
		return
	}
	rooms := s.inv.Rooms()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, o := range s.observers {
		o.RoomsChanged(ctx, rooms)
	}
}
