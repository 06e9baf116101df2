package moderation

import "time"

// AuditRecord is one line of the moderation audit log.
type AuditRecord struct {
	Time      time.Time `json:"time"`
	UpdateID  int64     `json:"update_id,omitempty"`
	Action    string    `json:"action"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id,omitempty"`
	MessageID int64     `json:"message_id,omitempty"`
	Keyword   string    `json:"keyword,omitempty"`
	Warnings  int       `json:"warnings,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type Auditor interface {
	AppendJSON(v any) error
}
