package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meeting-room-reservation/internal/service"
)

// ReservationHandler serves /api/reservations.
type ReservationHandler struct {
	Reservations *service.ReservationService
	Log          *logrus.Logger
}

// NewReservationHandler panics when the service is missing.
func NewReservationHandler(res *service.ReservationService, log *logrus.Logger) *ReservationHandler {
	if res == nil {
		panic("nil reservation service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: res, Log: log}
}

type createReservationRequest struct {
	RoomID        uint64 `json:"room_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Purpose       string `json:"purpose"`
	Requester     string `json:"requester"`
	WalletAddress string `json:"wallet_address"`
	Password      string `json:"password"`
}

type updateReservationRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Purpose   *string `json:"purpose"`
	Requester *string `json:"requester"`
}

// List handles GET /api/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	out, err := h.Reservations.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, out)
}

// Upcoming handles GET /api/reservations/upcoming?limit=N.
func (h *ReservationHandler) Upcoming(c echo.Context) error {
	limit := 0 // service default
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}
	out, err := h.Reservations.Upcoming(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, out)
}

// Today handles GET /api/reservations/today.
func (h *ReservationHandler) Today(c echo.Context) error {
	out, err := h.Reservations.Today(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, out)
}

// ByDate handles GET /api/reservations/date/:date.
func (h *ReservationHandler) ByDate(c echo.Context) error {
	out, err := h.Reservations.ByDate(c.Request().Context(), c.Param("date"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, out)
}

// ByRoom handles GET /api/reservations/room/:roomId.
func (h *ReservationHandler) ByRoom(c echo.Context) error {
	id, valid := pathID(c, "roomId")
	if !valid {
		return badRequest(c, "roomId must be a positive integer")
	}
	out, err := h.Reservations.ByRoom(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return okList(c, out)
}

// Availability handles GET /api/reservations/availability.
func (h *ReservationHandler) Availability(c echo.Context) error {
	var roomID uint64
	if raw := c.QueryParam("roomId"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "roomId must be a positive integer")
		}
		roomID = n
	}
	a, err := h.Reservations.CheckAvailability(c.Request().Context(), roomID,
		c.QueryParam("date"), c.QueryParam("startTime"), c.QueryParam("endTime"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, a, "")
}

// Get handles GET /api/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return badRequest(c, "id must be a positive integer")
	}
	res, err := h.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, res, "")
}

// Create handles POST /api/reservations.  A wallet_address and password
// in the body pay the booking fee by burning tokens.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Reservations.Create(c.Request().Context(), service.CreateReservationInput{
		RoomID:        body.RoomID,
		Date:          body.Date,
		StartTime:     body.StartTime,
		EndTime:       body.EndTime,
		Purpose:       body.Purpose,
		Requester:     body.Requester,
		WalletAddress: body.WalletAddress,
		Password:      body.Password,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, res, "reservation created")
}

// Update handles PUT /api/reservations/:id.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return badRequest(c, "id must be a positive integer")
	}
	var body updateReservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Reservations.Update(c.Request().Context(), id, service.UpdateReservationInput{
		Date:      body.Date,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Purpose:   body.Purpose,
		Requester: body.Requester,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, res, "reservation updated")
}

// Delete handles DELETE /api/reservations/:id.  The optional body
// carries the wallet password of a paid reservation.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return badRequest(c, "id must be a positive integer")
	}
	var body struct {
		Password string `json:"password"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	if err := h.Reservations.Delete(c.Request().Context(), id, body.Password); err != nil {
		return writeError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, nil, "reservation deleted")
}
