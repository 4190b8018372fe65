package extract

import (
	"context"
	_ "embed"
)

//go:embed lunch.js
var lunchJS string

// Script runs the block heuristics inside the page itself and returns the
// JSON the page produced. It needs a browser that executes scripts.
type Script struct{}

func (Script) Name() string { return "script" }

func (Script) Extract(ctx context.Context, src Source) ([]byte, error) {
	out, err := src.EvalString(ctx, lunchJS)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
