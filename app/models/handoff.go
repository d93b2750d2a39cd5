package models

import "time"

const HandoffModeBuyNow = "buy-now"

// HandoffPayload carries a "buy now" selection from a product page to the
// checkout page. Timestamp is milliseconds since the Unix epoch.
type HandoffPayload struct {
	Mode      string     `json:"mode"`
	Items     []LineItem `json:"items"`
	Timestamp int64      `json:"ts"`
}

func (p HandoffPayload) StagedAt() time.Time {
	return time.UnixMilli(p.Timestamp)
}
