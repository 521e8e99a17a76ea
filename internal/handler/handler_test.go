package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/handler"
	"github.com/iliyamo/meeting-room-reservation/internal/ledger"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/router"
	"github.com/iliyamo/meeting-room-reservation/internal/schedule"
	"github.com/iliyamo/meeting-room-reservation/internal/service"
	"github.com/iliyamo/meeting-room-reservation/internal/service/mocks"
)

const wallet = "0x1111111111111111111111111111111111111111"

var now = time.Date(2025, 6, 2, 10, 15, 0, 0, time.UTC)

type app struct {
	e     *echo.Echo
	store *mocks.Store
	gw    *mocks.Gateway
	db    sqlmock.Sqlmock
	room  model.Room
}

func newApp(t *testing.T) *app {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := mocks.NewStore()
	gw := new(mocks.Gateway)
	clock := schedule.FixedClock(now)

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rooms := mocks.RoomStore{Store: store}
	reservations := mocks.ReservationStore{Store: store}
	h := router.Handlers{
		Health: &handler.HealthHandler{DB: db},
		Rooms: handler.NewRoomHandler(&service.RoomService{
			Rooms: rooms, Reservations: reservations, Clock: clock, Log: log,
		}, log),
		Reservations: handler.NewReservationHandler(&service.ReservationService{
			Rooms: rooms, Reservations: reservations, Ledger: gw, Events: &mocks.Publisher{},
			Clock: clock, RatePerHour: decimal.NewFromInt(10), Log: log,
		}, log),
		Ledger: handler.NewLedgerHandler(&service.LedgerService{Ledger: gw, Log: log}, log),
	}
	e := echo.New()
	router.RegisterRoutes(e, h, router.Middleware{})

	room := store.AddRoom("Aurora", 8, "Floor 2", model.RoomAvailable)
	t.Cleanup(func() { gw.AssertExpectations(t) })
	return &app{e: e, store: store, gw: gw, db: dbMock, room: room}
}

type body struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  []string        `json:"errors"`
	Count   *int            `json:"count"`
}

func (a *app) do(t *testing.T, method, path, payload string) (int, body) {
	t.Helper()
	var req *http.Request
	if payload == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var b body
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	}
	return rec.Code, b
}

func TestReservationLifecycle(t *testing.T) {
	a := newApp(t)

	code, b := a.do(t, http.MethodPost, "/api/reservations",
		`{"room_id":1,"date":"2025-06-03","start_time":"10:00","end_time":"11:00","purpose":"Planning","requester":"alice"}`)
	require.Equal(t, http.StatusCreated, code, b.Message)
	assert.True(t, b.Success)
	assert.Equal(t, "reservation created", b.Message)
	var created model.Reservation
	require.NoError(t, json.Unmarshal(b.Data, &created))
	assert.Equal(t, "Aurora", created.RoomName)

	code, b = a.do(t, http.MethodGet, "/api/reservations/availability?roomId=1&date=2025-06-03&startTime=10:30&endTime=11:30", "")
	require.Equal(t, http.StatusOK, code)
	var avail service.Availability
	require.NoError(t, json.Unmarshal(b.Data, &avail))
	assert.False(t, avail.Available)

	code, b = a.do(t, http.MethodPost, "/api/reservations",
		`{"room_id":1,"date":"2025-06-03","start_time":"10:30","end_time":"11:30","purpose":"Clash","requester":"bob"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, b.Success)
	assert.Equal(t, "conflict", b.Error)

	code, b = a.do(t, http.MethodPut, "/api/reservations/1", `{"end_time":"12:00"}`)
	assert.Equal(t, http.StatusOK, code)

	code, b = a.do(t, http.MethodGet, "/api/reservations/date/2025-06-03", "")
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, b.Count)
	assert.Equal(t, 1, *b.Count)

	code, _ = a.do(t, http.MethodDelete, "/api/reservations/1", "")
	assert.Equal(t, http.StatusOK, code)

	code, b = a.do(t, http.MethodGet, "/api/reservations/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", b.Error)
}

func TestCreateReservationValidation(t *testing.T) {
	a := newApp(t)

	code, b := a.do(t, http.MethodPost, "/api/reservations", `{"room_id":1,"date":"2025-06-01","start_time":"7:5","end_time":"11:00"}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", b.Error)
	assert.Len(t, b.Errors, 4) // past date, bad start, purpose, requester

	code, b = a.do(t, http.MethodPost, "/api/reservations", `{"room_id":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", b.Error)
}

func TestCreateReservationRules(t *testing.T) {
	a := newApp(t)

	code, b := a.do(t, http.MethodPost, "/api/reservations",
		`{"room_id":1,"date":"2025-06-03","start_time":"08:30","end_time":"09:30","purpose":"Early","requester":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "business_rule", b.Error)

	code, b = a.do(t, http.MethodPost, "/api/reservations",
		`{"room_id":9,"date":"2025-06-03","start_time":"10:00","end_time":"11:00","purpose":"Ghost","requester":"alice"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", b.Error)
}

func TestPaidReservationErrors(t *testing.T) {
	a := newApp(t)
	a.gw.On("Burn", mock.Anything, wallet, "pw", mock.Anything).Return(nil, ledger.ErrInsufficientBalance).Once()
	a.gw.On("Burn", mock.Anything, wallet, "pw", mock.Anything).Return(nil, ledger.ErrUnreachable).Once()

	payload := `{"room_id":1,"date":"2025-06-03","start_time":"10:00","end_time":"11:00","purpose":"Paid","requester":"alice","wallet_address":"` + wallet + `","password":"pw"}`

	code, b := a.do(t, http.MethodPost, "/api/reservations", payload)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "payment_error", b.Error)

	code, b = a.do(t, http.MethodPost, "/api/reservations", payload)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "gateway_unreachable", b.Error)
	assert.Zero(t, a.store.Count())
}

func TestDeletePaidReservation(t *testing.T) {
	a := newApp(t)
	w, tx := wallet, "0xabc"
	res := a.store.AddReservation(model.Reservation{
		RoomID: a.room.ID, Date: "2025-06-03", StartTime: "10:00", EndTime: "11:00",
		WalletAddress: &w, BurnTxHash: &tx, KJBBurned: decimal.NewNullDecimal(decimal.NewFromInt(10)),
	})
	a.gw.On("Unlock", mock.Anything, wallet, "bad", ledger.AuthUnlock).Return(ledger.ErrAuthFailed).Once()
	a.gw.On("Unlock", mock.Anything, wallet, "good", ledger.AuthUnlock).Return(nil).Once()
	path := "/api/reservations/" + itoa(res.ID)

	code, b := a.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "authentication_error", b.Error)

	code, _ = a.do(t, http.MethodDelete, path, `{"password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(t, http.MethodDelete, path, `{"password":"good"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Zero(t, a.store.Count())
}

func TestRooms(t *testing.T) {
	a := newApp(t)
	a.store.AddReservation(model.Reservation{RoomID: a.room.ID, Date: "2025-06-02", StartTime: "10:00", EndTime: "11:00"})

	code, b := a.do(t, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, code)
	var rooms []model.Room
	require.NoError(t, json.Unmarshal(b.Data, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, model.RoomOccupied, rooms[0].Status)

	code, b = a.do(t, http.MethodGet, "/api/rooms?date=2025-06-03", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", b.Error)

	code, _ = a.do(t, http.MethodPost, "/api/rooms", `{"name":"Boreal","capacity":4,"location":"Floor 3"}`)
	assert.Equal(t, http.StatusCreated, code)

	code, b = a.do(t, http.MethodPost, "/api/rooms", `{"name":"Boreal","capacity":4,"location":"Floor 3"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "business_rule", b.Error)

	code, b = a.do(t, http.MethodGet, "/api/rooms/by-capacity?minCapacity=5", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *b.Count)

	code, b = a.do(t, http.MethodGet, "/api/rooms/available", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *b.Count)

	code, _ = a.do(t, http.MethodGet, "/api/rooms/by-capacity?minCapacity=lots", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(t, http.MethodPatch, "/api/rooms/1/status", `{"status":"maintenance"}`)
	assert.Equal(t, http.StatusOK, code)

	code, b = a.do(t, http.MethodDelete, "/api/rooms/1", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "business_rule", b.Error)

	code, _ = a.do(t, http.MethodGet, "/api/rooms/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLedgerEndpoints(t *testing.T) {
	a := newApp(t)
	a.gw.On("Stats", mock.Anything).Return(nil, ledger.ErrTimeout).Once()
	a.gw.On("Transfer", mock.Anything, wallet, "0x2222222222222222222222222222222222222222", "pw", mocks.AmountEq(5)).
		Return(&ledger.Receipt{TxHash: "0x05"}, nil).Once()

	code, b := a.do(t, http.MethodGet, "/api/kjb/stats", "")
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "gateway_timeout", b.Error)

	code, b = a.do(t, http.MethodPost, "/api/kjb/transfer",
		`{"fromAddress":"`+wallet+`","toAddress":"0x2222222222222222222222222222222222222222","amount":"5","password":"pw"}`)
	require.Equal(t, http.StatusOK, code, b.Message)
	assert.Contains(t, string(b.Data), "0x05")

	code, b = a.do(t, http.MethodGet, "/api/kjb/balance/nope", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", b.Error)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	a.db.ExpectPing()
	a.db.ExpectPing().WillReturnError(errors.New("gone"))

	code, _ := a.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestErrorMapper(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{service.ErrPaymentOrphaned, http.StatusInternalServerError, "payment_orphaned"},
		{&service.ValidationError{Problems: []string{"x"}}, http.StatusBadRequest, "validation_error"},
		{service.ErrConflict, http.StatusConflict, "conflict"},
		{service.ErrAuthentication, http.StatusUnauthorized, "authentication_error"},
		{service.ErrPayment, http.StatusPaymentRequired, "payment_error"},
		{errors.Join(service.ErrPayment, service.ErrGatewayTimeout), http.StatusGatewayTimeout, "gateway_timeout"},
		{service.ErrGatewayUnreachable, http.StatusBadGateway, "gateway_unreachable"},
		{service.ErrBusinessRule, http.StatusBadRequest, "business_rule"},
		{errors.New("boom"), http.StatusInternalServerError, "storage_error"},
	}
	for _, tc := range cases {
		status, kind := handler.Errors.Map(tc.err)
		assert.Equal(t, tc.status, status, tc.kind)
		assert.Equal(t, tc.kind, kind)
		assert.Equal(t, service.Kind(tc.err), kind)
	}
}

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }
