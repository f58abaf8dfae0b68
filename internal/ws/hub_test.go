package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	initial := SnapshotFunc(func() []model.Room {
		return []model.Room{{Number: 101, Floor: 1, Position: 1}}
	}, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Serve(hub, w, r, initial)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	return snap
}

func TestHub_InitialSnapshotThenBroadcast(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)

	first := readSnapshot(t, conn)
	assert.Equal(t, "rooms", first.Type)
	assert.Equal(t, 1, first.Available)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.RoomsChanged(context.Background(), []model.Room{
		{Number: 101, Floor: 1, Position: 1, Booked: true, Selected: true},
		{Number: 102, Floor: 1, Position: 2},
	})
	next := readSnapshot(t, conn)
	assert.Equal(t, 1, next.Available)
	require.Len(t, next.Rooms, 2)
	assert.Equal(t, model.StatusNewlyBooked, next.Rooms[0].Status())
}

func TestHub_ClientLeaves(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	readSnapshot(t, conn)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewSnapshot_CountsAvailable(t *testing.T) {
	snap := NewSnapshot([]model.Room{{Booked: true}, {}, {}})
	assert.Equal(t, 2, snap.Available)
}

func TestHub_InitialSnapshotTakenAtRegistration(t *testing.T) {
	hub := NewHub(zap.NewNop())

	var mu sync.Mutex
	rooms := []model.Room{{Number: 101, Floor: 1, Position: 1}}
	current := func() []model.Room {
		mu.Lock()
		defer mu.Unlock()
		return append([]model.Room(nil), rooms...)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Serve(hub, w, r, SnapshotFunc(current, zap.NewNop()))
	}))
	t.Cleanup(srv.Close)

	// The hub is not running yet, so the client is upgraded but waits to
	// register while the room is booked.
	conn := dial(t, srv)
	mu.Lock()
	rooms[0].Booked = true
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	first := readSnapshot(t, conn)
	assert.Equal(t, 0, first.Available)
	require.Len(t, first.Rooms, 1)
	assert.True(t, first.Rooms[0].Booked)
}
