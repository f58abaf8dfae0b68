package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BookingRecord mirrors one row of the room_bookings table.  RoomNumbers are
// stored as a comma separated list in booking order.
type BookingRecord struct {
	ID          uint64    `json:"-"`
	BookingID   string    `json:"booking_id"`
	RoomNumbers []int     `json:"rooms"`
	TravelTime  int       `json:"travel_time"`
	Phase       string    `json:"phase"`
	BookedAt    time.Time `json:"booked_at"`
}

// BookingRepo appends committed bookings to the ledger and reads them back.
// The ledger is an audit trail only; room occupancy is never rebuilt from it.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts a booking.  On success the record's ID is populated.
func (r *BookingRepo) Create(ctx context.Context, b *BookingRecord) error {
	const q = `INSERT INTO room_bookings (booking_id, room_numbers, room_count, travel_time, phase, booked_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.BookingID, joinRooms(b.RoomNumbers), len(b.RoomNumbers), b.TravelTime, b.Phase, b.BookedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert booking %s: %w", b.BookingID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// ListRecent returns up to limit bookings, newest first.
func (r *BookingRepo) ListRecent(ctx context.Context, limit int) ([]BookingRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, booking_id, room_numbers, travel_time, phase, booked_at
	           FROM room_bookings
	           ORDER BY booked_at DESC, id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]BookingRecord, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByBookingID retrieves a booking by its public identifier.
func (r *BookingRepo) GetByBookingID(ctx context.Context, bookingID string) (*BookingRecord, error) {
	const q = `SELECT id, booking_id, room_numbers, travel_time, phase, booked_at
	           FROM room_bookings WHERE booking_id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (*BookingRecord, error) {
	var (
		b     BookingRecord
		rooms string
	)
	if err := s.Scan(&b.ID, &b.BookingID, &rooms, &b.TravelTime, &b.Phase, &b.BookedAt); err != nil {
		return nil, err
	}
	nums, err := splitRooms(rooms)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.BookingID, err)
	}
	b.RoomNumbers = nums
	return &b, nil
}

func joinRooms(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func splitRooms(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad room number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
