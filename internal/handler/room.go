package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/service"
)

// RoomHandler serves /api/rooms.
type RoomHandler struct {
	Rooms *service.RoomService
	Log   *logrus.Logger
}

// NewRoomHandler panics when the service is missing.
func NewRoomHandler(rooms *service.RoomService, log *logrus.Logger) *RoomHandler {
	if rooms == nil {
		panic("nil room service passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Log: log}
}

// roomRequest is the body of POST /rooms and PUT /rooms/:id.
type roomRequest struct {
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
}

func (r roomRequest) input() service.RoomInput {
	return service.RoomInput{Name: r.Name, Capacity: r.Capacity, Location: r.Location, Status: r.Status}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// List handles GET /api/rooms?date&startTime&endTime.
func (h *RoomHandler) List(c echo.Context) error {
	slot, err := service.SlotQuery(c.QueryParam("date"), c.QueryParam("startTime"), c.QueryParam("endTime"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rooms, err := h.Rooms.ListWithStatus(c.Request().Context(), slot)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, rooms)
}

// Available handles GET /api/rooms/available.
func (h *RoomHandler) Available(c echo.Context) error {
	rooms, err := h.Rooms.Available(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, rooms)
}

// ByCapacity handles GET /api/rooms/by-capacity?minCapacity=N.  The
// older ?capacity= spelling is accepted too.
func (h *RoomHandler) ByCapacity(c echo.Context) error {
	raw := c.QueryParam("minCapacity")
	if raw == "" {
		raw = c.QueryParam("capacity")
	}
	min, err := strconv.Atoi(raw)
	if err != nil {
		return badRequest(c, "minCapacity must be a positive integer")
	}
	rooms, err := h.Rooms.ByCapacity(c.Request().Context(), min)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, rooms)
}

// ByLocation handles GET /api/rooms/by-location?location=.
func (h *RoomHandler) ByLocation(c echo.Context) error {
	rooms, err := h.Rooms.ByLocation(c.Request().Context(), c.QueryParam("location"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, rooms)
}

// Get handles GET /api/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return badRequest(c, "id must be a positive integer")
	}
	rm, err := h.Rooms.GetWithStatus(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, rm, "")
}

// Create handles POST /api/rooms.
func (h *RoomHandler) Create(c echo.Context) error {
	var body roomRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	rm, err := h.Rooms.Create(c.Request().Context(), body.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, rm, "room created")
}

// Update handles PUT /api/rooms/:id.
func (h *RoomHandler) Update(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return badRequest(c, "id must be a positive integer")
	}
	var body roomRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	rm, err := h.Rooms.Update(c.Request().Context(), id, body.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, rm, "room updated")
}

// UpdateStatus handles PATCH /api/rooms/:id/status.
func (h *RoomHandler) UpdateStatus(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return badRequest(c, "id must be a positive integer")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	rm, err := h.Rooms.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, rm, "room status updated")
}

// Delete handles DELETE /api/rooms/:id.
func (h *RoomHandler) Delete(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return badRequest(c, "id must be a positive integer")
	}
	if err := h.Rooms.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, nil, "room deleted")
}
