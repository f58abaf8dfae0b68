package booking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/inventory"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/queue"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/selector"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.RoomsBookedEvent
	err    error
}

// The fakes refuse cancelled contexts the way the real sinks do.

func (f *fakePublisher) PublishRoomsBooked(ctx context.Context, ev queue.RoomsBookedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeLedger struct {
	mu      sync.Mutex
	records []repository.BookingRecord
	err     error
}

func (f *fakeLedger) Create(ctx context.Context, b *repository.BookingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *b)
	return nil
}

type fakeObserver struct {
	mu    sync.Mutex
	calls [][]model.Room
}

func (f *fakeObserver) RoomsChanged(ctx context.Context, rooms []model.Room) {
	if ctx.Err() != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rooms)
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *inventory.Inventory) {
	t.Helper()
	inv := inventory.New()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(inv, zap.NewNop(), opts...), inv
}

func TestRequestBooking_EmptyHotel(t *testing.T) {
	pub := &fakePublisher{}
	led := &fakeLedger{}
	obs := &fakeObserver{}
	svc, inv := newTestService(t, WithPublisher(pub), WithLedger(led), WithObserver(obs))

	res, err := svc.RequestBooking(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103}, res.Rooms)
	assert.Equal(t, 2, res.TravelTime)
	assert.Equal(t, selector.PhaseSameFloor, res.Phase)
	assert.Equal(t, fixedNow, res.BookedAt)
	assert.NotEmpty(t, res.BookingID)

	for _, num := range []int{101, 102, 103} {
		r, _ := inv.Room(num)
		assert.True(t, r.Booked)
		assert.True(t, r.Selected)
	}

	require.Len(t, pub.events, 1)
	assert.Equal(t, res.BookingID, pub.events[0].BookingID)
	assert.Equal(t, []int{1}, pub.events[0].Floors)
	assert.Equal(t, model.TotalRooms-3, pub.events[0].AvailableAfter)
	assert.Equal(t, "2026-10-19T12:00:00Z", pub.events[0].BookedAt)

	require.Len(t, led.records, 1)
	assert.Equal(t, res.BookingID, led.records[0].BookingID)
	assert.Equal(t, "SAME_FLOOR", led.records[0].Phase)

	require.Len(t, obs.calls, 1)
	assert.Len(t, obs.calls[0], model.TotalRooms)
}

func TestRequestBooking_SecondBookingMovesSelection(t *testing.T) {
	svc, inv := newTestService(t)
	_, err := svc.RequestBooking(context.Background(), 2)
	require.NoError(t, err)
	res, err := svc.RequestBooking(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{103, 104}, res.Rooms)

	r101, _ := inv.Room(101)
	assert.True(t, r101.Booked)
	assert.False(t, r101.Selected)
	r103, _ := inv.Room(103)
	assert.True(t, r103.Selected)
}

func TestRequestBooking_InvalidCount(t *testing.T) {
	obs := &fakeObserver{}
	svc, inv := newTestService(t, WithObserver(obs))
	require.NoError(t, inv.Commit([]int{505}))
	before := inv.Rooms()

	for _, n := range []int{-1, 0, 6, 100} {
		_, err := svc.RequestBooking(context.Background(), n)
		assert.ErrorIs(t, err, ErrInvalidCount, "count %d", n)
		assert.Equal(t, ReasonInvalidCount, Reason(err))
	}
	assert.Equal(t, before, inv.Rooms(), "inventory must be untouched")
	assert.Empty(t, obs.calls)
}

func TestRequestBooking_NotEnoughRooms(t *testing.T) {
	pub := &fakePublisher{}
	led := &fakeLedger{}
	svc, inv := newTestService(t, WithPublisher(pub), WithLedger(led))

	var all []int
	for _, r := range inv.Rooms() {
		if r.Number != 404 && r.Number != 1005 {
			all = append(all, r.Number)
		}
	}
	require.NoError(t, inv.Commit(all))
	r101, _ := inv.Room(101)
	require.True(t, r101.Selected)

	_, err := svc.RequestBooking(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotEnoughRooms)
	assert.Equal(t, ReasonNotEnoughRooms, Reason(err))
	assert.Equal(t, 2, inv.Available())
	for _, r := range inv.Rooms() {
		assert.False(t, r.Selected, "selection is cleared on a rejected request")
		assert.Equal(t, r.Number != 404 && r.Number != 1005, r.Booked, "room %d", r.Number)
	}
	assert.Empty(t, pub.events)
	assert.Empty(t, led.records)
}

func TestRequestBooking_SideEffectFailuresDoNotFailBooking(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	led := &fakeLedger{err: errors.New("db down")}
	svc, inv := newTestService(t, WithPublisher(pub), WithLedger(led))

	res, err := svc.RequestBooking(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{101}, res.Rooms)
	r, _ := inv.Room(101)
	assert.True(t, r.Booked)
}

func TestRequestBooking_ConcurrentRequestsNeverShareRooms(t *testing.T) {
	svc, inv := newTestService(t)
	const workers = 19
	var wg sync.WaitGroup
	results := make(chan Result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.RequestBooking(context.Background(), 5)
			if err == nil {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	count := 0
	for res := range results {
		count++
		for _, n := range res.Rooms {
			assert.False(t, seen[n], "room %d booked twice", n)
			seen[n] = true
		}
	}
	assert.Equal(t, workers, count)
	assert.Equal(t, model.TotalRooms-5*workers, inv.Available())
}

func TestRequestBooking_CancelledContextStillFansOut(t *testing.T) {
	pub := &fakePublisher{}
	led := &fakeLedger{}
	obs := &fakeObserver{}
	svc, _ := newTestService(t, WithPublisher(pub), WithLedger(led), WithObserver(obs))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.RequestBooking(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103}, res.Rooms)

	require.Len(t, led.records, 1)
	assert.Equal(t, res.BookingID, led.records[0].BookingID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, res.BookingID, pub.events[0].BookingID)
	require.Len(t, obs.calls, 1)
	assert.Equal(t, model.TotalRooms-3, countAvailable(obs.calls[0]))

	svc.Reset(ctx)
	svc.Randomize(ctx)
	assert.Len(t, obs.calls, 3)
}

func TestObserversSeeChangesInOrder(t *testing.T) {
	obs := &fakeObserver{}
	svc, _ := newTestService(t, WithObserver(obs))

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestBooking(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, obs.calls, workers)
	for i, rooms := range obs.calls {
		assert.Equal(t, model.TotalRooms-i-1, countAvailable(rooms), "snapshot %d out of order", i)
	}
}

func countAvailable(rooms []model.Room) int {
	n := 0
	for _, r := range rooms {
		if !r.Booked {
			n++
		}
	}
	return n
}

func TestResetAndRandomize(t *testing.T) {
	obs := &fakeObserver{}
	svc, inv := newTestService(t, WithObserver(obs))
	_, err := svc.RequestBooking(context.Background(), 4)
	require.NoError(t, err)

	svc.Reset(context.Background())
	assert.Equal(t, inventory.New().Rooms(), svc.Rooms())

	svc.Randomize(context.Background())
	for _, r := range inv.Rooms() {
		assert.False(t, r.Selected)
	}
	assert.Len(t, svc.Rooms(), model.TotalRooms)
	assert.Len(t, obs.calls, 3)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{`3`, 3, true},
		{`"4"`, 4, true},
		{`" 2 "`, 2, true},
		{`5.0`, 5, true},
		{`-1`, -1, true},
		{`6`, 6, true},
		{`2.5`, 0, false},
		{`"abc"`, 0, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{``, 0, false},
		{`true`, 0, false},
		{`[1]`, 0, false},
		{`"NaN"`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCount(json.RawMessage(tt.raw))
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidCount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCount(t *testing.T) {
	for n := 1; n <= 5; n++ {
		assert.NoError(t, ValidateCount(n))
	}
	assert.ErrorIs(t, ValidateCount(0), ErrInvalidCount)
	assert.ErrorIs(t, ValidateCount(6), ErrInvalidCount)
}
