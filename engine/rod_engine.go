package engine

import (
	"context"
	"fmt"
)

// RodFetchFunc invokes the scraper's browser fetch. The scraper injects it
// at startup, keeping this package free of a dependency on scraper.
type RodFetchFunc func(ctx context.Context, req *FetchRequest) (*FetchResult, error)

// RodEngine serves requests through the shared headless browser. Two
// instances sit in the escalation ladder: a plain one and one that forces
// stealth patches onto every request it serves.
type RodEngine struct {
	fetch   RodFetchFunc
	stealth bool
	name    string
}

// NewRodEngine wraps fetch as an engine. With forceStealth set the engine
// reports itself as "rod-stealth" and turns Stealth on for each request.
func NewRodEngine(fetch RodFetchFunc, forceStealth bool) *RodEngine {
	e := &RodEngine{fetch: fetch, stealth: forceStealth, name: "rod"}
	if forceStealth {
		e.name = "rod-stealth"
	}
	return e
}

func (e *RodEngine) Name() string { return e.name }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.fetch == nil {
		return nil, fmt.Errorf("%s: no browser fetch configured", e.name)
	}

	// Work on a copy so forcing stealth never leaks into the caller's
	// request.
	r := *req
	if e.stealth {
		r.Stealth = true
	}

	result, err := e.fetch(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	result.EngineName = e.name
	return result, nil
}
