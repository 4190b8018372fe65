package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Bistro", "bistro"},
		{"spaces", "Pub Niska", "pub-niska"},
		{"accent", "Café Test", "caf--test"},
		{"punctuation", "Smakbyn & Co.", "smakbyn---co-"},
		{"digits kept", "Restaurant 22", "restaurant-22"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	for _, s := range []string{"Café Test", "ÅLAND Grill!", "  spaced  out ", "a-b_c", "Ölstugan 1"} {
		once := Slugify(s)
		assert.Equal(t, once, Slugify(once), "input %q", s)
	}
}

func TestLunchData_IsStale(t *testing.T) {
	loc := time.FixedZone("EET", 2*60*60)
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, loc)

	tests := []struct {
		name      string
		fetchedAt time.Time
		want      bool
	}{
		{"earlier today", time.Date(2026, 10, 17, 0, 5, 0, 0, loc), false},
		{"just now", now, false},
		{"yesterday late", time.Date(2026, 10, 16, 23, 59, 0, 0, loc), true},
		{"within 24h but yesterday", now.Add(-10 * time.Hour), true},
		{"same instant other zone", time.Date(2026, 10, 17, 7, 30, 0, 0, time.UTC), false},
		{"zero", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := LunchData{FetchedAt: tt.fetchedAt}
			assert.Equal(t, tt.want, d.IsStale(now))
		})
	}
}

func TestLunchData_UnmarshalFetchedAt(t *testing.T) {
	t.Run("rfc3339", func(t *testing.T) {
		var d LunchData
		require.NoError(t, json.Unmarshal([]byte(`{"restaurants":[],"fetchedAt":"2026-10-17T08:00:00Z"}`), &d))
		assert.True(t, d.FetchedAt.Equal(time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)))
	})

	t.Run("epoch seconds", func(t *testing.T) {
		var d LunchData
		require.NoError(t, json.Unmarshal([]byte(`{"restaurants":[{"id":"a","name":"A","sections":[]}],"fetchedAt":1792224000.5}`), &d))
		assert.Equal(t, int64(1792224000), d.FetchedAt.Unix())
		assert.Equal(t, 500*time.Millisecond, time.Duration(d.FetchedAt.Nanosecond()))
		require.Len(t, d.Restaurants, 1)
	})

	t.Run("bad type", func(t *testing.T) {
		var d LunchData
		assert.Error(t, json.Unmarshal([]byte(`{"fetchedAt":true}`), &d))
	})
}

func TestRestaurant_AllMenuItems(t *testing.T) {
	r := Restaurant{Sections: []MenuSection{
		{Items: []MenuItem{{Name: "Soup"}}},
		{Items: []MenuItem{{Name: "Fish"}, {Name: "Cake"}}},
	}}

	items := r.AllMenuItems()
	require.Len(t, items, 3)
	assert.Equal(t, "Cake", items[2].Name)
}

func TestScrapeError_UserMessage(t *testing.T) {
	cause := errors.New("net::ERR_NAME_NOT_RESOLVED")

	assert.Equal(t, "Network error: net::ERR_NAME_NOT_RESOLVED",
		NewScrapeError(ErrCodeNetwork, "navigation failed", cause).UserMessage())
	assert.Equal(t, "Request timed out. Please check your internet connection.",
		NewScrapeError(ErrCodeTimeout, "render timed out", nil).UserMessage())
	assert.Equal(t, "Failed to decode data: missing name",
		NewScrapeError(ErrCodeDecoding, "missing name", nil).UserMessage())
	assert.Equal(t, MsgNoRestaurants,
		NewScrapeError(ErrCodeEmptyResult, "nothing qualified", nil).UserMessage())

	var se *ScrapeError
	wrapped := NewScrapeError(ErrCodeNetwork, "x", cause)
	assert.True(t, errors.As(error(wrapped), &se))
	assert.ErrorIs(t, wrapped, cause)
}
