package models

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// MenuItem is a single dish. Price is kept exactly as printed on the page.
type MenuItem struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
}

// MenuSection groups items in document order. Title may be empty.
type MenuSection struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Items []MenuItem `json:"items"`
}

// Restaurant is one establishment on the lunch page. ID is derived from the
// name with Slugify so it stays stable across fetches.
type Restaurant struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Phone    string        `json:"phone,omitempty"`
	ImageURL string        `json:"imageURL,omitempty"`
	Sections []MenuSection `json:"sections"`
}

// AllMenuItems flattens every section's items in order.
func (r Restaurant) AllMenuItems() []MenuItem {
	var items []MenuItem
	for _, s := range r.Sections {
		items = append(items, s.Items...)
	}
	return items
}

// LunchData is the persisted snapshot of one successful fetch.
type LunchData struct {
	Restaurants []Restaurant `json:"restaurants"`
	FetchedAt   time.Time    `json:"fetchedAt"`
}

// IsStale reports whether FetchedAt falls outside the calendar day of now,
// evaluated in now's location.
func (d LunchData) IsStale(now time.Time) bool {
	y1, m1, d1 := d.FetchedAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// UnmarshalJSON accepts fetchedAt as RFC 3339 text or as epoch seconds.
func (d *LunchData) UnmarshalJSON(data []byte) error {
	var raw struct {
		Restaurants []Restaurant    `json:"restaurants"`
		FetchedAt   json.RawMessage `json:"fetchedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Restaurants = raw.Restaurants
	d.FetchedAt = time.Time{}

	ts := strings.TrimSpace(string(raw.FetchedAt))
	if ts == "" || ts == "null" {
		return nil
	}
	if strings.HasPrefix(ts, `"`) {
		return json.Unmarshal(raw.FetchedAt, &d.FetchedAt)
	}
	var secs float64
	if err := json.Unmarshal(raw.FetchedAt, &secs); err != nil {
		return fmt.Errorf("fetchedAt: %w", err)
	}
	whole, frac := math.Modf(secs)
	d.FetchedAt = time.Unix(int64(whole), int64(frac*1e9))
	return nil
}

var reNonSlug = regexp.MustCompile(`[^a-z0-9]`)

// Slugify lowercases name and replaces every character outside [a-z0-9]
// with '-'. The result is a fixed point: Slugify(Slugify(s)) == Slugify(s).
func Slugify(name string) string {
	return reNonSlug.ReplaceAllString(strings.ToLower(name), "-")
}
