// Package reconcile decides what to show and what to persist after a refresh.
package reconcile

import (
	"errors"
	"time"

	"github.com/use-agent/alandlunch/models"
)

// Outcome is the result of merging a fetch with the previously displayed data.
type Outcome struct {
	// ToPersist is non-nil only when the fetch produced restaurants.
	ToPersist *models.LunchData
	// ToDisplay is never nil.
	ToDisplay []models.Restaurant
	// UserError is empty unless there is nothing to fall back on.
	UserError string
}

// Reconcile merges a fetch result with previous, the data currently shown.
// A failed or empty fetch never replaces previous, and never reports an
// error while previous still has something to show.
func Reconcile(previous *models.LunchData, fetched []models.Restaurant, fetchErr error, now time.Time) Outcome {
	var prev []models.Restaurant
	if previous != nil {
		prev = previous.Restaurants
	}
	haveFallback := len(prev) > 0

	if fetchErr != nil {
		out := Outcome{ToDisplay: nonNil(prev)}
		if !haveFallback {
			out.UserError = userMessage(fetchErr)
		}
		return out
	}

	if len(fetched) == 0 {
		out := Outcome{ToDisplay: nonNil(prev)}
		if !haveFallback {
			out.UserError = models.MsgNoRestaurants
		}
		return out
	}

	return Outcome{
		ToPersist: &models.LunchData{Restaurants: fetched, FetchedAt: now},
		ToDisplay: fetched,
	}
}

// NeedsRefresh reports whether previous is missing or from an earlier day.
func NeedsRefresh(previous *models.LunchData, now time.Time) bool {
	return previous == nil || previous.IsStale(now)
}

func userMessage(err error) string {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return models.NewScrapeError("", err.Error(), err).UserMessage()
}

func nonNil(rs []models.Restaurant) []models.Restaurant {
	if rs == nil {
		return []models.Restaurant{}
	}
	return rs
}
