// Package extract turns a rendered lunch page into raw restaurant records.
//
// The heuristics guess at generic markup: a block with a heading and at
// least one priced line is a restaurant. False positives and negatives are
// expected; the decoder only checks shape.
package extract

import (
	"context"
	"fmt"
)

// Source is a rendered page. scraper.Document satisfies it.
type Source interface {
	HTML(ctx context.Context) (string, error)
	EvalString(ctx context.Context, js string) (string, error)
}

// Strategy produces serialized []models.RawRestaurant from a page.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, src Source) ([]byte, error)
}

// New returns the strategy registered under name. baseURL resolves relative
// image links.
func New(name, baseURL string) (Strategy, error) {
	switch name {
	case "heuristic", "":
		return Heuristic{BaseURL: baseURL}, nil
	case "script":
		return Script{}, nil
	default:
		return nil, fmt.Errorf("extract: unknown strategy %q", name)
	}
}
