package models

type EventSource string

const (
	SourceLocal    EventSource = "local"
	SourceExternal EventSource = "external"
)

// CartEvent is what views receive after the cart changed.
type CartEvent struct {
	Scope  string      `json:"scope"`
	Items  []LineItem  `json:"items"`
	Totals Totals      `json:"totals"`
	Source EventSource `json:"source"`
}
