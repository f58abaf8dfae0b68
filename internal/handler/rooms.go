package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/ws"
)

type roomView struct {
	Number   int    `json:"room_number"`
	Position int    `json:"position"`
	Status   string `json:"status"`
	Booked   bool   `json:"is_booked"`
	Selected bool   `json:"is_selected"`
}

type floorView struct {
	Floor int        `json:"floor"`
	Rooms []roomView `json:"rooms"`
}

// groupByFloor lays rooms out top floor first, positions ascending, the way
// the front desk grid shows them.
func groupByFloor(rooms []model.Room) []floorView {
	byFloor := make(map[int][]roomView, model.Floors)
	for _, r := range rooms {
		byFloor[r.Floor] = append(byFloor[r.Floor], roomView{
			Number:   r.Number,
			Position: r.Position,
			Status:   r.Status(),
			Booked:   r.Booked,
			Selected: r.Selected,
		})
	}
	out := make([]floorView, 0, model.Floors)
	for floor := model.Floors; floor >= 1; floor-- {
		out = append(out, floorView{Floor: floor, Rooms: byFloor[floor]})
	}
	return out
}

// ListRooms handles GET /v1/rooms.  It returns every room grouped by floor
// along with the number of unbooked rooms.
func (h *BookingHandler) ListRooms(c echo.Context) error {
	rooms := h.Svc.Rooms()
	available := 0
	for _, r := range rooms {
		if !r.Booked {
			available++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":     len(rooms),
		"available": available,
		"floors":    groupByFloor(rooms),
	})
}

// StreamHandler upgrades GET /v1/rooms/ws to a websocket carrying room
// snapshots.
type StreamHandler struct {
	Hub    *ws.Hub
	Svc    interface{ Rooms() []model.Room }
	Logger *zap.Logger
}

// StreamRooms sends the current rooms and then every change.
func (h *StreamHandler) StreamRooms(c echo.Context) error {
	if h.Hub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "room stream disabled"})
	}
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// A failed upgrade has already answered the client.
	_ = ws.Serve(h.Hub, c.Response(), c.Request(), ws.SnapshotFunc(h.Svc.Rooms, logger))
	return nil
}
