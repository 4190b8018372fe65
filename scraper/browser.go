package scraper

import "context"

// Document is a loaded page that can be read.
type Document interface {
	// HTML returns the serialized DOM as it is right now.
	HTML(ctx context.Context) (string, error)

	// EvalString runs js in the page and returns its string result.
	// A non-string result is a parsing error.
	EvalString(ctx context.Context, js string) (string, error)
}

// Tab is one isolated browsing context with its own cookie and storage jar.
type Tab interface {
	Document

	// Navigate loads url bypassing any local HTTP cache and returns once the
	// load event has fired.
	Navigate(ctx context.Context, url string) error

	// Close tears the context down. It is called exactly once per tab.
	Close() error
}

// Browser allocates tabs.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
	Close() error
}

// ScriptRunner is implemented by tabs that can say whether they execute
// page scripts. Tabs that do not implement it are assumed to.
type ScriptRunner interface {
	RunsScripts() bool
}

func runsScripts(tab Tab) bool {
	if sr, ok := tab.(ScriptRunner); ok {
		return sr.RunsScripts()
	}
	return true
}
