package domain

import "time"

// CommandRecord is an audit entry for one applied command.
type CommandRecord struct {
	PK        string       `json:"-"`
	SK        string       `json:"-"`
	CommandID string       `json:"commandId"`
	Text      string       `json:"text"`
	Action    Action       `json:"action"`
	Items     []ParsedItem `json:"items"`
	Response  string       `json:"response"`
	CreatedAt time.Time    `json:"createdAt"`
	TTL       int64        `json:"-"`
}
