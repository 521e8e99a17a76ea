package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

func res(id uint64, date, start, end string) model.Reservation {
	return model.Reservation{ID: id, RoomID: 1, Date: date, StartTime: start, EndTime: end}
}

func at(date, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]struct {
		want TimeOfDay
		ok   bool
	}{
		"09:00": {540, true},
		"9:00":  {540, true},
		"00:00": {0, true},
		"23:59": {1439, true},
		"24:00": {0, false},
		"12:60": {0, false},
		"1200":  {0, false},
		"12:5":  {0, false},
		"ab:cd": {0, false},
		"":      {0, false},
	}
	for in, tc := range cases {
		got, err := ParseTimeOfDay(in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidTime, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, tc.want, got, in)
	}
	assert.Equal(t, "09:05", MustTimeOfDay("9:05").String())
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2025-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("2025-2-3")
	assert.ErrorIs(t, err, ErrInvalidDate)
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d)
}

func TestParseSlot_JoinsEveryProblem(t *testing.T) {
	_, err := ParseSlot("nope", "25:00", "10:00")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = ParseSlot("2030-01-01", "10:00", "10:00")
	assert.ErrorIs(t, err, ErrEmptyInterval)

	s, err := ParseSlot("2030-01-01", "9:00", "10:30")
	require.NoError(t, err)
	assert.Equal(t, 90, s.Minutes())
}

func TestOverlaps(t *testing.T) {
	m := MustTimeOfDay
	// containment is symmetric
	assert.True(t, Overlaps(m("09:00"), m("10:00"), m("09:30"), m("09:45")))
	assert.True(t, Overlaps(m("09:30"), m("09:45"), m("09:00"), m("10:00")))
	// partial overlap on either side
	assert.True(t, Overlaps(m("09:00"), m("10:00"), m("09:59"), m("11:00")))
	assert.True(t, Overlaps(m("09:30"), m("11:00"), m("09:00"), m("10:00")))
	// adjacent intervals never overlap
	assert.False(t, Overlaps(m("09:00"), m("10:00"), m("10:00"), m("11:00")))
	assert.False(t, Overlaps(m("10:00"), m("11:00"), m("09:00"), m("10:00")))
}

func TestHasConflict_ExcludesSelf(t *testing.T) {
	existing := []model.Reservation{
		res(1, "2030-01-01", "09:00", "10:00"),
		res(2, "2030-01-01", "13:00", "14:00"),
	}
	m := MustTimeOfDay
	assert.True(t, HasConflict(existing, m("09:30"), m("09:45"), 0))
	assert.False(t, HasConflict(existing, m("09:30"), m("09:45"), 1))
	assert.False(t, HasConflict(existing, m("10:00"), m("13:00"), 0))
	hit, found := FindConflict(existing, m("12:00"), m("13:30"), 0)
	require.True(t, found)
	assert.Equal(t, uint64(2), hit.ID)
}

func TestPolicy(t *testing.T) {
	m := MustTimeOfDay
	assert.True(t, WithinBusinessHours(m("09:00"), m("18:00")))
	assert.False(t, WithinBusinessHours(m("08:30"), m("09:30")))
	assert.False(t, WithinBusinessHours(m("17:30"), m("18:30")))
	assert.False(t, WithinBusinessHours(m("17:30"), m("18:01")))

	assert.True(t, DurationAllowed(30))
	assert.False(t, DurationAllowed(29))
	assert.True(t, DurationAllowed(480))
	assert.False(t, DurationAllowed(481))
}

func TestStatusNow(t *testing.T) {
	room := model.Room{ID: 1, Status: model.RoomAvailable}
	todays := []model.Reservation{res(1, "2030-05-05", "10:00", "11:00")}

	assert.Equal(t, model.RoomOccupied, StatusNow(room, todays, at("2030-05-05", "10:00")))
	assert.Equal(t, model.RoomOccupied, StatusNow(room, todays, at("2030-05-05", "10:59")))
	assert.Equal(t, model.RoomAvailable, StatusNow(room, todays, at("2030-05-05", "11:00")))
	assert.Equal(t, model.RoomAvailable, StatusNow(room, nil, at("2030-05-05", "10:30")))

	room.Status = model.RoomMaintenance
	assert.Equal(t, model.RoomMaintenance, StatusNow(room, todays, at("2030-05-05", "10:30")))
	assert.Equal(t, model.RoomMaintenance, StatusNow(room, nil, at("2030-05-05", "10:30")))
}

func TestStatusForSlot(t *testing.T) {
	room := model.Room{ID: 1, Status: model.RoomAvailable}
	now := at("2030-05-05", "10:30")
	slot := func(date, s, e string) Slot {
		return Slot{Date: date, Start: MustTimeOfDay(s), End: MustTimeOfDay(e)}
	}

	t.Run("free future date", func(t *testing.T) {
		assert.Equal(t, model.RoomAvailable, StatusForSlot(room, slot("2030-05-06", "09:00", "10:00"), nil, now))
	})
	t.Run("elapsed slot today", func(t *testing.T) {
		assert.Equal(t, model.RoomUnavailable, StatusForSlot(room, slot("2030-05-05", "09:00", "10:00"), nil, now))
		assert.Equal(t, model.RoomUnavailable, StatusForSlot(room, slot("2030-05-05", "09:30", "10:30"), nil, now))
	})
	t.Run("overlap with running reservation", func(t *testing.T) {
		booked := []model.Reservation{res(1, "2030-05-05", "10:00", "11:00")}
		assert.Equal(t, model.RoomOccupied, StatusForSlot(room, slot("2030-05-05", "10:45", "12:00"), booked, now))
	})
	t.Run("overlap with later reservation today", func(t *testing.T) {
		booked := []model.Reservation{res(1, "2030-05-05", "14:00", "15:00")}
		assert.Equal(t, model.RoomUnavailable, StatusForSlot(room, slot("2030-05-05", "14:30", "16:00"), booked, now))
	})
	t.Run("overlap on another date", func(t *testing.T) {
		booked := []model.Reservation{res(1, "2030-05-06", "10:00", "11:00")}
		assert.Equal(t, model.RoomUnavailable, StatusForSlot(room, slot("2030-05-06", "10:00", "11:00"), booked, now))
	})
	t.Run("free today in the future", func(t *testing.T) {
		booked := []model.Reservation{res(1, "2030-05-05", "10:00", "11:00")}
		assert.Equal(t, model.RoomAvailable, StatusForSlot(room, slot("2030-05-05", "11:00", "12:00"), booked, now))
	})
	t.Run("maintenance", func(t *testing.T) {
		r := room
		r.Status = model.RoomMaintenance
		assert.Equal(t, model.RoomUnavailable, StatusForSlot(r, slot("2030-05-06", "09:00", "10:00"), nil, now))
	})
}

func TestClocks(t *testing.T) {
	fixed := at("2031-12-31", "23:59")
	c := FixedClock(fixed)
	assert.Equal(t, "2031-12-31", Today(c.Now()))
	assert.Equal(t, "23:59", TimeOf(c.Now()).String())
	assert.False(t, SystemClock{Location: time.UTC}.Now().IsZero())
}
